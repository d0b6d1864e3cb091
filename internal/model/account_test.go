package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAccountRef(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantJoint bool
		wantStr   string
	}{
		{name: "member", input: "josh", wantStr: "josh"},
		{name: "joint lowercase", input: "joint", wantJoint: true, wantStr: "joint"},
		{name: "joint uppercase", input: "JOINT", wantJoint: true, wantStr: "joint"},
		{name: "joint mixed case", input: "Joint", wantJoint: true, wantStr: "joint"},
		{name: "whitespace", input: " anna ", wantStr: "anna"},
		{name: "empty", input: "", wantStr: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := ParseAccountRef(tt.input)
			assert.Equal(t, tt.wantJoint, ref.IsJoint())
			assert.Equal(t, tt.wantStr, ref.String())
		})
	}
}

func TestAccountRefEqual(t *testing.T) {
	assert.True(t, ParseAccountRef("JOINT").Equal(Joint()))
	assert.True(t, ParseAccountRef("josh").Equal(Member("josh")))
	assert.False(t, Member("josh").Equal(Member("anna")))
	assert.False(t, Member("joint").Equal(Joint()), "Member does not reinterpret the literal")
}

func TestAccountRefIsZero(t *testing.T) {
	assert.True(t, ParseAccountRef("").IsZero())
	assert.False(t, Joint().IsZero())
	assert.False(t, Member("josh").IsZero())
}
