package store

import "testing"

func TestSeedPopulatesEmptyDatabase(t *testing.T) {
	s := newTestStore(t)

	if err := s.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	tools, err := s.AllTools()
	if err != nil {
		t.Fatalf("AllTools: %v", err)
	}
	if len(tools) != len(seedTools) {
		t.Errorf("tools = %d, want %d", len(tools), len(seedTools))
	}
	unis, err := s.AllUniversities()
	if err != nil {
		t.Fatalf("AllUniversities: %v", err)
	}
	if want := len(seedUniversities) + len(seedCampuses); len(unis) != want {
		t.Errorf("universities = %d, want %d", len(unis), want)
	}
}

func TestSeedPreservesOperatorEdits(t *testing.T) {
	s := newTestStore(t)
	if err := s.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if _, err := s.SetToolActive("spotify-verify", false); err != nil {
		t.Fatalf("SetToolActive: %v", err)
	}
	unis, err := s.AllUniversities()
	if err != nil {
		t.Fatalf("AllUniversities: %v", err)
	}
	var removed string
	for _, u := range unis {
		if u.OrgID == 80001 {
			removed = u.ID
		}
	}
	if err := s.DeleteUniversity(removed); err != nil {
		t.Fatalf("DeleteUniversity: %v", err)
	}

	if err := s.Seed(); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	tool, err := s.ToolByID("spotify-verify")
	if err != nil {
		t.Fatalf("ToolByID: %v", err)
	}
	if tool.IsActive {
		t.Error("reseed re-enabled a disabled tool")
	}

	unis, err = s.AllUniversities()
	if err != nil {
		t.Fatalf("AllUniversities: %v", err)
	}
	for _, u := range unis {
		if u.OrgID == 80001 {
			t.Error("reseed restored a deleted university")
		}
	}
}

func TestSeedRestoresMissingCampuses(t *testing.T) {
	s := newTestStore(t)
	if err := s.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	unis, err := s.AllUniversities()
	if err != nil {
		t.Fatalf("AllUniversities: %v", err)
	}
	for _, u := range unis {
		if u.OrgID == 651379 {
			if err := s.DeleteUniversity(u.ID); err != nil {
				t.Fatalf("DeleteUniversity: %v", err)
			}
		}
	}

	if err := s.Seed(); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	unis, err = s.AllUniversities()
	if err != nil {
		t.Fatalf("AllUniversities: %v", err)
	}
	found := false
	for _, u := range unis {
		if u.OrgID == 651379 {
			found = true
		}
	}
	if !found {
		t.Error("missing campus was not re-added on reseed")
	}
}
