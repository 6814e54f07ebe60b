package domain

import (
	"fmt"
	"hash/crc32"
	"strconv"
	"time"
)

// OrderIDPrefixLen is the length of the part of an order ID before the
// sequence number.
const OrderIDPrefixLen = 6

// OrderIDPrefix builds [customer 2 digits][month A-L][day 2 digits][shipping
// code]. Guests get customer digits 00.
func OrderIDPrefix(userID *string, at time.Time, shipping ShippingMethod) string {
	month := byte('A' + int(at.Month()) - 1)
	return fmt.Sprintf("%02d%c%02d%c", customerDigits(userID), month, at.Day(), shipping.Code())
}

// FormatOrderID appends a sequence number to prefix, e.g. 01A15P01.
func FormatOrderID(prefix string, seq int) string {
	return fmt.Sprintf("%s%02d", prefix, seq)
}

// customerDigits takes the numeric suffix of the user ID (U12 -> 12) or,
// when there is none, a checksum of the whole ID, reduced mod 100.
func customerDigits(userID *string) int {
	if userID == nil || *userID == "" {
		return 0
	}
	id := *userID
	start := len(id)
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	if digits := id[start:]; digits != "" {
		if len(digits) > 2 {
			digits = digits[len(digits)-2:]
		}
		n, _ := strconv.Atoi(digits)
		return n
	}
	return int(crc32.ChecksumIEEE([]byte(id)) % 100)
}
