package store

import "verihub/internal/logging"

var seedTools = []Tool{
	{
		ID:          "spotify-verify",
		Name:        "Spotify Premium",
		Description: "University student verification for the Spotify Premium student discount.",
		Category:    "student",
		IsActive:    true,
	},
	{
		ID:          "youtube-verify",
		Name:        "YouTube Premium",
		Description: "University student verification for the YouTube Premium student discount.",
		Category:    "student",
		IsActive:    true,
	},
	{
		ID:          "one-verify",
		Name:        "Gemini Advanced",
		Description: "Google One AI Premium student verification for Gemini Advanced access.",
		Category:    "student",
		IsActive:    true,
	},
	{
		ID:          "boltnew-verify",
		Name:        "Bolt.new",
		Description: "Teacher verification for Bolt.new using university teaching credentials.",
		Category:    "teacher",
		IsActive:    true,
	},
	{
		ID:          "canva-teacher",
		Name:        "Canva Education",
		Description: "Teacher verification for Canva Education using K-12 school credentials.",
		Category:    "teacher",
		IsActive:    true,
	},
	{
		ID:          "k12-verify",
		Name:        "ChatGPT Plus",
		Description: "K12 teacher verification for ChatGPT Plus using high school teacher credentials.",
		Category:    "teacher",
		IsActive:    true,
	},
	{
		ID:          "veterans-verify",
		Name:        "Military Verification",
		Description: "Military status verification for veteran discounts across various services.",
		Category:    "military",
		IsActive:    true,
	},
	{
		ID:          "veterans-extension",
		Name:        "Chrome Extension",
		Description: "Browser extension companion for streamlined military verification.",
		Category:    "extension",
		IsActive:    true,
	},
}

var seedUniversities = []University{
	{OrgID: 2565, Name: "Pennsylvania State University", Domain: "psu.edu", Country: "USA", Weight: 100, SuccessRate: 72},
	{OrgID: 3499, Name: "University of California, Los Angeles", Domain: "ucla.edu", Country: "USA", Weight: 98, SuccessRate: 68},
	{OrgID: 1445, Name: "University of Texas at Austin", Domain: "utexas.edu", Country: "USA", Weight: 95, SuccessRate: 65},
	{OrgID: 2233, Name: "Ohio State University", Domain: "osu.edu", Country: "USA", Weight: 92, SuccessRate: 70},
	{OrgID: 1876, Name: "University of Florida", Domain: "ufl.edu", Country: "USA", Weight: 90, SuccessRate: 63},
	{OrgID: 3321, Name: "Arizona State University", Domain: "asu.edu", Country: "USA", Weight: 88, SuccessRate: 67},
	{OrgID: 4455, Name: "University of Michigan", Domain: "umich.edu", Country: "USA", Weight: 85, SuccessRate: 71},
	{OrgID: 5566, Name: "University of Washington", Domain: "uw.edu", Country: "USA", Weight: 82, SuccessRate: 60},
	{OrgID: 6677, Name: "Boston University", Domain: "bu.edu", Country: "USA", Weight: 80, SuccessRate: 58},
	{OrgID: 7788, Name: "New York University", Domain: "nyu.edu", Country: "USA", Weight: 78, SuccessRate: 55},
	{OrgID: 10001, Name: "University of Oxford", Domain: "ox.ac.uk", Country: "UK", Weight: 75, SuccessRate: 62},
	{OrgID: 10002, Name: "University of Cambridge", Domain: "cam.ac.uk", Country: "UK", Weight: 73, SuccessRate: 64},
	{OrgID: 10003, Name: "Imperial College London", Domain: "imperial.ac.uk", Country: "UK", Weight: 70, SuccessRate: 59},
	{OrgID: 20001, Name: "University of Tokyo", Domain: "u-tokyo.ac.jp", Country: "Japan", Weight: 68, SuccessRate: 56},
	{OrgID: 20002, Name: "Kyoto University", Domain: "kyoto-u.ac.jp", Country: "Japan", Weight: 65, SuccessRate: 54},
	{OrgID: 30001, Name: "Seoul National University", Domain: "snu.ac.kr", Country: "South Korea", Weight: 63, SuccessRate: 52},
	{OrgID: 30002, Name: "Korea University", Domain: "korea.ac.kr", Country: "South Korea", Weight: 60, SuccessRate: 50},
	{OrgID: 40001, Name: "University of Toronto", Domain: "utoronto.ca", Country: "Canada", Weight: 72, SuccessRate: 66},
	{OrgID: 40002, Name: "University of British Columbia", Domain: "ubc.ca", Country: "Canada", Weight: 70, SuccessRate: 61},
	{OrgID: 50001, Name: "University of Melbourne", Domain: "unimelb.edu.au", Country: "Australia", Weight: 67, SuccessRate: 57},
	{OrgID: 50002, Name: "University of Sydney", Domain: "sydney.edu.au", Country: "Australia", Weight: 65, SuccessRate: 55},
	{OrgID: 60001, Name: "FPT University", Domain: "fpt.edu.vn", Country: "Vietnam", Weight: 80, SuccessRate: 74},
	{OrgID: 60002, Name: "VNU University of Science", Domain: "hus.vnu.edu.vn", Country: "Vietnam", Weight: 78, SuccessRate: 71},
	{OrgID: 70001, Name: "Technical University of Munich", Domain: "tum.de", Country: "Germany", Weight: 62, SuccessRate: 53},
	{OrgID: 80001, Name: "Sorbonne University", Domain: "sorbonne-universite.fr", Country: "France", Weight: 60, SuccessRate: 51},
}

// Campus-level entries for the highest-weighted school. The remote
// organization search treats each campus as its own organization.
var seedCampuses = []University{
	{OrgID: 651379, Name: "Pennsylvania State University-World Campus", Domain: "psu.edu", Country: "USA", Weight: 95, SuccessRate: 70},
	{OrgID: 8387, Name: "Pennsylvania State University-Penn State Harrisburg", Domain: "psu.edu", Country: "USA", Weight: 90, SuccessRate: 68},
	{OrgID: 8382, Name: "Pennsylvania State University-Penn State Altoona", Domain: "psu.edu", Country: "USA", Weight: 88, SuccessRate: 65},
	{OrgID: 8396, Name: "Pennsylvania State University-Penn State Berks", Domain: "psu.edu", Country: "USA", Weight: 85, SuccessRate: 63},
	{OrgID: 8379, Name: "Pennsylvania State University-Penn State Brandywine", Domain: "psu.edu", Country: "USA", Weight: 83, SuccessRate: 62},
	{OrgID: 2560, Name: "Pennsylvania State University-College of Medicine", Domain: "psu.edu", Country: "USA", Weight: 80, SuccessRate: 60},
	{OrgID: 650600, Name: "Pennsylvania State University-Penn State Lehigh Valley", Domain: "psu.edu", Country: "USA", Weight: 78, SuccessRate: 58},
	{OrgID: 8388, Name: "Pennsylvania State University-Penn State Hazleton", Domain: "psu.edu", Country: "USA", Weight: 76, SuccessRate: 57},
	{OrgID: 8394, Name: "Pennsylvania State University-Penn State Worthington Scranton", Domain: "psu.edu", Country: "USA", Weight: 74, SuccessRate: 55},
}

// Seed populates the catalog and organization tables on first boot. An
// already-seeded database only gains organizations whose orgId is missing,
// so operator edits to existing rows survive restarts.
func (s *Store) Seed() error {
	tools, err := s.AllTools()
	if err != nil {
		return err
	}

	existing, err := s.AllUniversities()
	if err != nil {
		return err
	}
	known := make(map[int]bool, len(existing))
	for _, u := range existing {
		known[u.OrgID] = true
	}

	if len(tools) > 0 {
		added := 0
		for _, campus := range seedCampuses {
			if known[campus.OrgID] {
				continue
			}
			if _, err := s.CreateUniversity(campus); err != nil {
				return err
			}
			added++
		}
		if added > 0 {
			logging.Store("seed: added %d missing campuses", added)
		}
		return nil
	}

	for _, t := range seedTools {
		if err := s.UpsertTool(t); err != nil {
			return err
		}
	}
	count := 0
	for _, u := range append(append([]University{}, seedUniversities...), seedCampuses...) {
		if known[u.OrgID] {
			continue
		}
		if _, err := s.CreateUniversity(u); err != nil {
			return err
		}
		count++
	}
	logging.Store("seed: created %d tools and %d universities", len(seedTools), count)
	return nil
}
