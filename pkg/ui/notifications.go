package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"skinscraper/pkg/crawler"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier announces finished crawls on the desktop
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the current platform. Other platforms only
// get the console line.
func NewNotifier() *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWithSender uses the given sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// CrawlFinished sends the crawl summary, or the failure when err is set
func (n *Notifier) CrawlFinished(res *crawler.Result, err error) {
	summary := "no images"
	if res != nil {
		summary = res.Summary()
	}
	if err != nil {
		n.send("skinscraper: crawl failed", fmt.Sprintf("%s (%v)", summary, err))
		return
	}
	n.send("skinscraper: crawl complete", summary)
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// notification failures never affect the crawl
	_ = n.sender.Send(title, message)
}
