package video

import (
	"encoding/json"
	"testing"
)

func TestParseInteger(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{`212`, 212, false},
		{`212.9`, 212, false},
		{`"1000"`, 1000, false},
		{`" 15 "`, 15, false},
		{`null`, 0, true},
		{``, 0, true},
		{`"abc"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		got, err := parseInteger(json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("parseInteger(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseInteger(%s) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseOptionalInteger(t *testing.T) {
	if got := parseOptionalInteger(json.RawMessage(`null`)); got != nil {
		t.Errorf("null -> %d, want nil", *got)
	}
	if got := parseOptionalInteger(nil); got != nil {
		t.Errorf("absent -> %d, want nil", *got)
	}
	if got := parseOptionalInteger(json.RawMessage(`7`)); got == nil || *got != 7 {
		t.Errorf("7 -> %v, want 7", got)
	}
}

func TestNormalize_ChannelDefaults(t *testing.T) {
	info := sampleInfo()
	info.Channel = ""
	info.Uploader = "Uploader"
	info.UploaderURL = ""

	meta, err := normalize(info)
	if err != nil {
		t.Fatalf("normalize() error = %v", err)
	}
	if meta.Channel.Name != "Uploader" {
		t.Errorf("Channel.Name = %q, want uploader fallback", meta.Channel.Name)
	}
	if meta.Channel.Description != "" || meta.Channel.AvatarURL != "" {
		t.Errorf("Channel = %+v, want empty defaults", meta.Channel)
	}
}
