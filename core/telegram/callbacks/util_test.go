package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackDataPrefersUnique(t *testing.T) {
	cb := &tele.Callback{Unique: "pet_refresh", Data: "payload"}
	key, payload := ParseCallbackData(cb)
	if key != "pet_refresh" || payload != "payload" {
		t.Errorf("got (%q, %q)", key, payload)
	}
}

func TestParseCallbackDataDecodesRawData(t *testing.T) {
	cases := []struct {
		data    string
		key     string
		payload string
	}{
		{"\\fget_session|", "get_session", ""},
		{"\\fget_session|extra", "get_session", "extra"},
		{"get_session", "get_session", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		key, payload := ParseCallbackData(&tele.Callback{Data: tc.data})
		if key != tc.key || payload != tc.payload {
			t.Errorf("ParseCallbackData(%q) = (%q, %q), want (%q, %q)", tc.data, key, payload, tc.key, tc.payload)
		}
	}
}

func TestParseCallbackDataNil(t *testing.T) {
	key, payload := ParseCallbackData(nil)
	if key != "" || payload != "" {
		t.Errorf("got (%q, %q)", key, payload)
	}
}
