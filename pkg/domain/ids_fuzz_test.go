package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseUserID checks parsing never panics and accepted ids round-trip.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("1")
	f.Add("9223372036854775807")
	f.Add("not-an-id")
	f.Add("1; DROP TABLE users;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseUserID(input)
		if err == nil {
			if id.IsNil() {
				t.Error("accepted a nil id")
			}
			roundTrip, err2 := ParseUserID(id.String())
			if err2 != nil {
				t.Errorf("valid id failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed id value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseIDsAgree checks every id kind shares one grammar. Audit cursors
// additionally accept "0".
func FuzzParseIDsAgree(f *testing.F) {
	f.Add("0")
	f.Add("42")
	f.Add("-1")
	f.Add("00012")

	f.Fuzz(func(t *testing.T, input string) {
		user, errUser := ParseUserID(input)
		record, errRecord := ParseDIDRecordID(input)
		entry, errEntry := ParseAuditEntryID(input)

		if (errUser == nil) != (errRecord == nil) {
			t.Fatalf("user and did ids disagree on %q", input)
		}
		if errUser == nil {
			if int64(user) != int64(record) || errEntry != nil || int64(entry) != int64(user) {
				t.Fatalf("ids parsed differently from %q", input)
			}
		}
		if errEntry == nil && errUser != nil && input != "0" {
			t.Fatalf("audit cursor accepted %q that user ids reject", input)
		}
	})
}
