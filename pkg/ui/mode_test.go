package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyHint(t *testing.T) {
	s := NewState()
	assert.Equal(t, ModeChat, s.Mode)

	s.ApplyHint(ModePropertyList, []string{"P1", "P2"})
	assert.Equal(t, ModePropertyList, s.Mode)
	assert.Equal(t, []string{"P1", "P2"}, s.Payload)

	// Empty hint leaves the mode alone.
	s.ApplyHint("", nil)
	assert.Equal(t, ModePropertyList, s.Mode)

	// Unparseable hint recovers to chat.
	s.ApplyHint(Mode("GALAXY_VIEW"), nil)
	assert.Equal(t, ModeChat, s.Mode)
	assert.Nil(t, s.Payload)
}

func TestApplyAgentSwitch(t *testing.T) {
	s := NewState()

	s.ApplyAgentSwitch("verification")
	assert.Equal(t, ModeVerificationForm, s.Mode)

	s.ApplyAgentSwitch("scheduling")
	assert.Equal(t, ModeSchedulingForm, s.Mode)

	s.Payload = map[string]string{"slot": "x"}
	s.ApplyAgentSwitch("discovery")
	assert.Equal(t, ModeChat, s.Mode)
	assert.Nil(t, s.Payload)

	// Unknown agents do not transition.
	s.ApplyHint(ModeBrochure, nil)
	s.ApplyAgentSwitch("concierge")
	assert.Equal(t, ModeBrochure, s.Mode)
}

func TestSuppressFromTranscript(t *testing.T) {
	suppressed := []string{
		"My name is Priya and my number is +14155550000",
		"my name is Sam Jones and my phone number is 415 555 0000.",
		"My verification code is 123456",
		"the code is 9876.",
		"I'd like to visit Green Meadows on 2026-09-01 at 14:00",
		"Selected date: 2026-09-01",
		"Yes, schedule a visit for me.",
	}
	for _, text := range suppressed {
		assert.True(t, SuppressFromTranscript(text), text)
	}

	visible := []string{
		"",
		"What's the price of Green Meadows?",
		"My name is Priya", // no phone number attached
		"Can you verify whether pets are allowed?",
	}
	for _, text := range visible {
		assert.False(t, SuppressFromTranscript(text), text)
	}
}
