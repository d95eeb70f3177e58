package models

import (
	"github.com/asaskevich/govalidator"
)

const (
	emailPattern   = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	maxPhoneLength = 12
)

// ValidEmail reports whether email matches the accepted address pattern.
func ValidEmail(email string) bool {
	return govalidator.Matches(email, emailPattern)
}

// ValidPhone reports whether phone is a '+' followed by one to eleven ASCII
// digits, i.e. at most twelve characters in total.
func ValidPhone(phone string) bool {
	if len(phone) < 2 || len(phone) > maxPhoneLength || phone[0] != '+' {
		return false
	}
	for i := 1; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}
