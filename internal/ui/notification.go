package ui

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Icon names of the freedesktop icon naming spec
const (
	IconDialogError = "dialog-error"
	IconDialogWarn  = "dialog-warning"

	UrgencyNormal   = "normal"
	UrgencyCritical = "critical"
)

var errNoDisplay = errors.New("missing env variable 'DISPLAY'")

func NotifyWarn(title, text string) {
	NotifySend(UrgencyNormal, title, text, IconDialogWarn)
}

func NotifyError(title, text string) {
	NotifySend(UrgencyCritical, title, text, IconDialogError)
}

// NotifySend shows a desktop notification to the user owning the current display session.
// The daemon runs as root, so notify-send is run as that user on their session bus.
func NotifySend(urgency, title, text, icon string) {
	display, user, uid, err := sessionOwner()
	if err != nil {
		Debug("Cannot send notification: %v", err)
		return
	}

	cmd := exec.Command("sudo", "-u", user,
		"DISPLAY="+display,
		"DBUS_SESSION_BUS_ADDRESS=unix:path=/run/user/"+uid+"/bus",
		"notify-send",
		"-a", "fancond",
		"-u", urgency,
		"-i", icon,
		title, text,
	)
	if err = cmd.Run(); err != nil {
		Error("Error sending notification: %v", err)
	}
}

// sessionOwner finds the user logged in on $DISPLAY, as listed by who
func sessionOwner() (display string, user string, uid string, err error) {
	display, exists := os.LookupEnv("DISPLAY")
	if !exists {
		return "", "", "", errNoDisplay
	}

	output, err := exec.Command("who").Output()
	if err != nil {
		return "", "", "", fmt.Errorf("unable to list sessions: %w", err)
	}
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.Contains(line, display) {
			user = fields[0]
			break
		}
	}
	if len(user) <= 0 {
		return "", "", "", fmt.Errorf("no session found for display %s", display)
	}

	output, err = exec.Command("id", "-u", user).Output()
	if err != nil {
		return "", "", "", fmt.Errorf("unable to detect id of user %s: %w", user, err)
	}
	return display, user, strings.TrimSpace(string(output)), nil
}
