package types

import "testing"

func TestIssueSetDefaults(t *testing.T) {
	var issue Issue
	issue.SetDefaults()
	if issue.Comments == nil || len(issue.Comments) != 0 {
		t.Errorf("Comments = %#v, want empty slice", issue.Comments)
	}
	if issue.Dependencies == nil || len(issue.Dependencies) != 0 {
		t.Errorf("Dependencies = %#v, want empty slice", issue.Dependencies)
	}
}
