package types

import (
	"testing"
	"time"
)

func validMetadata() SkillMetadata {
	return SkillMetadata{
		Name:             "storytelling",
		DisplayName:      "故事讲述",
		Description:      "讲述引人入胜的故事",
		Category:         CategoryConversation,
		Version:          "1.0.0",
		MaxExecutionTime: 20 * time.Second,
		ConcurrentLimit:  2,
		Enabled:          true,
	}
}

func TestSkillMetadataValidate(t *testing.T) {
	meta := validMetadata()
	if errs := meta.Validate(); len(errs) != 0 {
		t.Fatalf("expected valid metadata, got errors: %v", errs)
	}

	tests := []struct {
		name   string
		mutate func(*SkillMetadata)
	}{
		{"empty name", func(m *SkillMetadata) { m.Name = "  " }},
		{"empty display name", func(m *SkillMetadata) { m.DisplayName = "" }},
		{"empty description", func(m *SkillMetadata) { m.Description = "" }},
		{"bad version", func(m *SkillMetadata) { m.Version = "1" }},
		{"zero max execution time", func(m *SkillMetadata) { m.MaxExecutionTime = 0 }},
		{"zero concurrent limit", func(m *SkillMetadata) { m.ConcurrentLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMetadata()
			tt.mutate(&m)
			if errs := m.Validate(); len(errs) == 0 {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSkillMetadataCompatibleWith(t *testing.T) {
	meta := validMetadata()
	if !meta.CompatibleWith("苏格拉底") {
		t.Fatalf("empty compatibility list should allow any character")
	}

	meta.CharacterCompatibility = []string{"哈利·波特", "苏格拉底"}
	if !meta.CompatibleWith("哈利·波特") {
		t.Fatalf("listed character should be compatible")
	}
	if meta.CompatibleWith("阿尔伯特·爱因斯坦") {
		t.Fatalf("unlisted character should not be compatible")
	}
}

func TestSkillConfigValidate(t *testing.T) {
	cfg := DefaultSkillConfig("analysis")
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should be valid, got %v", errs)
	}

	cfg.Weight = 11
	cfg.Threshold = 1.5
	cfg.Cooldown = -time.Second
	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d: %v", len(errs), errs)
	}
}

func TestExecutionStatusTerminal(t *testing.T) {
	for _, s := range []ExecutionStatus{StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []ExecutionStatus{StatusPending, StatusRunning} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestSkillContextRecentSkills(t *testing.T) {
	ctx := SkillContext{
		SkillHistory: []SkillUse{
			{SkillName: "analysis"},
			{SkillName: "storytelling"},
			{SkillName: "deep_questioning"},
		},
	}

	recent := ctx.RecentSkills(2)
	if len(recent) != 2 || recent[0].SkillName != "storytelling" || recent[1].SkillName != "deep_questioning" {
		t.Fatalf("unexpected recent skills: %v", recent)
	}
	if got := ctx.RecentSkills(10); len(got) != 3 {
		t.Fatalf("expected full history, got %v", got)
	}
	if got := ctx.RecentSkills(0); got != nil {
		t.Fatalf("expected nil for n=0, got %v", got)
	}
}
