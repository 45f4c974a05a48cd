package models

import (
	"testing"
)

func TestGenerationStatus(t *testing.T) {
	statuses := []GenerationStatus{
		GenerationStatusQueued,
		GenerationStatusRunning,
		GenerationStatusCompleted,
		GenerationStatusPartiallyFailed,
		GenerationStatusAborted,
		GenerationStatusRejected,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestVideoStatus(t *testing.T) {
	statuses := []VideoStatus{
		VideoStatusProcessing,
		VideoStatusCompleted,
		VideoStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestValidAspectRatio(t *testing.T) {
	tests := []struct {
		ratio string
		want  bool
	}{
		{"16:9", true},
		{"9:16", true},
		{"4:3", false},
		{"1:1", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidAspectRatio(tt.ratio); got != tt.want {
			t.Errorf("ValidAspectRatio(%q) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestUserUnlimited(t *testing.T) {
	tests := []struct {
		name string
		role UserRole
		plan PlanType
		want bool
	}{
		{"admin", RoleAdmin, PlanFree, true},
		{"enterprise", RoleUser, PlanEnterprise, true},
		{"admin on enterprise", RoleAdmin, PlanEnterprise, true},
		{"regular free", RoleUser, PlanFree, false},
		{"regular pro", RoleUser, PlanPro, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Role: tt.role, Plan: tt.plan}
			if got := u.Unlimited(); got != tt.want {
				t.Errorf("Unlimited() = %v, want %v", got, tt.want)
			}
		})
	}
}
