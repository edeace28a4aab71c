package rule_test

import (
	"testing"

	"github.com/tvloop/tvloop/pkg/rule"
)

// EndpointForm mirrors how registry entries carry rule tags.
type EndpointForm struct {
	StoreAddress string `rule:"required,url"`
	Caption      string `rule:"required"`
}

// TestEngine checks the engine initializes.
func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct checks tagged struct validation.
func TestValidateStruct(t *testing.T) {
	valid := EndpointForm{StoreAddress: "http://10.0.0.5:3000", Caption: "Lobby"}
	if err := rule.ValidateStruct(valid); err != nil {
		t.Errorf("expected no error for valid struct, got %v", err)
	}

	missing := EndpointForm{StoreAddress: "http://10.0.0.5:3000"}
	if err := rule.ValidateStruct(missing); err == nil {
		t.Error("expected error for missing caption, got nil")
	}

	badURL := EndpointForm{StoreAddress: "not a url", Caption: "Lobby"}
	if err := rule.ValidateStruct(badURL); err == nil {
		t.Error("expected error for bad address, got nil")
	}
}

// TestVideofileRule checks the videoN.mp4 naming rule.
func TestVideofileRule(t *testing.T) {
	for _, name := range []string{"video1.mp4", "video42.mp4"} {
		if err := rule.ValidateVar(name, "videofile"); err != nil {
			t.Errorf("ValidateVar(%q) = %v, want nil", name, err)
		}
	}

	for _, name := range []string{"clip.mp4", "video1.xml", "video.mp4", "../../etc/passwd", ""} {
		if err := rule.ValidateVar(name, "videofile"); err == nil {
			t.Errorf("ValidateVar(%q) = nil, want error", name)
		}
	}
}

// TestXMLFileRule checks the videoN.xml naming rule.
func TestXMLFileRule(t *testing.T) {
	if err := rule.ValidateVar("video7.xml", "xmlfile"); err != nil {
		t.Errorf("ValidateVar(video7.xml) = %v, want nil", err)
	}

	if err := rule.ValidateVar("video7.mp4", "xmlfile"); err == nil {
		t.Error("ValidateVar(video7.mp4) = nil, want error")
	}
}
