package service

import (
	"fmt"
	"time"
)

func confirmEmailTemplate(confirmURL, appName string, expiry time.Duration) (string, string) {
	subject := fmt.Sprintf("Confirm your signup for %s", appName)
	body := fmt.Sprintf(`Thanks for signing up! Confirm your email address with this link:
%s

This link expires in %s and can only be used once.

If you didn't sign up, you can safely ignore this email.

Best,
The %s Team`, confirmURL, humanDuration(expiry), appName)

	return subject, body
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(d / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
