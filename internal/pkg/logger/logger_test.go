package logger

import "testing"

func TestRedactEmail(t *testing.T) {
	cases := map[string]string{
		"john.doe@example.com": "jo***@example.com",
		"ab@example.com":       "***@example.com",
		"a@example.com":        "***@example.com",
		"not-an-email":         "***@***",
	}
	for in, want := range cases {
		if got := RedactEmail(in); got != want {
			t.Errorf("RedactEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedactPhone(t *testing.T) {
	if got := RedactPhone("+61412345678"); got != "**********78" {
		t.Errorf("RedactPhone = %q", got)
	}
	if got := RedactPhone("1"); got != "*" {
		t.Errorf("RedactPhone short = %q", got)
	}
}

func TestRedactPIIValue_Field(t *testing.T) {
	if got := redactPIIValue("lead_email", "jane@corp.com"); got != "ja***@corp.com" {
		t.Errorf("got %q", got)
	}
	if got := redactPIIValue("phone", "0412345678"); got != "********78" {
		t.Errorf("got %q", got)
	}
	if got := redactPIIValue("linkedin_url", "https://linkedin.com/in/jane"); got != "[redacted-linkedin-url]" {
		t.Errorf("got %q", got)
	}
}
