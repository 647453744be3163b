package entity

import (
	"encoding/base64"
	"testing"
)

func TestDecodeID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "encoded single digit",
			input:    "MQ==",
			expected: "1",
		},
		{
			name:     "encoded six",
			input:    "Ng==",
			expected: "6",
		},
		{
			name:     "encoded multi digit",
			input:    "MTIz",
			expected: "123",
		},
		{
			name:     "plain numeric passes through",
			input:    "42",
			expected: "42",
		},
		{
			name:     "non-base64 passes through",
			input:    "not-base64!",
			expected: "not-base64!",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeID(tt.input); got != tt.expected {
				t.Errorf("DecodeID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDecodeIDRoundTrip(t *testing.T) {
	for _, id := range []string{"1", "6", "42", "12345"} {
		encoded := base64.StdEncoding.EncodeToString([]byte(id))
		if got := DecodeID(encoded); got != id {
			t.Errorf("DecodeID(encode(%q)) = %q, want %q", id, got, id)
		}
	}
}

func TestDecodeIDBinaryGarbagePassesThrough(t *testing.T) {
	// Valid base64 that decodes to non-printable bytes is not an entity ID.
	in := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0xff})
	if got := DecodeID(in); got != in {
		t.Errorf("DecodeID(%q) = %q, want input unchanged", in, got)
	}
}

func TestSyntheticEmail(t *testing.T) {
	if got := SyntheticEmail("17"); got != "customer_17@unknown" {
		t.Errorf("SyntheticEmail(17) = %q", got)
	}
	if !IsSyntheticEmail("customer_17@unknown") {
		t.Error("IsSyntheticEmail should match placeholder pattern")
	}
	if IsSyntheticEmail("jane@example.com") {
		t.Error("IsSyntheticEmail matched a real email")
	}
}

func TestUniqueIDs(t *testing.T) {
	if got := CompanyGroupID("2"); got != "company_2" {
		t.Errorf("CompanyGroupID = %q", got)
	}
	if got := TeamGroupID("5"); got != "team_5" {
		t.Errorf("TeamGroupID = %q", got)
	}
	if got := RoleUniqueID("2", "6"); got != "role_2_6" {
		t.Errorf("RoleUniqueID = %q", got)
	}
}

func TestSetValidate(t *testing.T) {
	set := &Set{
		Company: Company{ID: "2", Name: "Acme"},
		Users: []User{
			{Email: "a@example.com"},
			{Email: "b@example.com"},
		},
		Roles: []Role{
			{ID: "6", CompanyID: "2"},
			{ID: "6", CompanyID: "3"}, // same role ID, different company: fine
		},
	}
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	set.Users = append(set.Users, User{Email: "a@example.com"})
	if err := set.Validate(); err == nil {
		t.Fatal("Validate() accepted a duplicate email")
	}

	empty := &Set{}
	if err := empty.Validate(); err == nil {
		t.Fatal("Validate() accepted a set with no company")
	}
}
