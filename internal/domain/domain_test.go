package domain

import (
	"testing"
	"time"
)

func boolp(b bool) *bool { return &b }

func snapshot() MonitoringConfig {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return MonitoringConfig{Projects: []ProjectConfig{
		{
			Project: Project{ID: "P1", Name: "shop", CreatedAt: created},
			Setting: &Setting{ProjectID: "P1", Enabled: boolp(true), IntervalSeconds: 60, NotifyMode: NotifySlack, Recipient: "https://hooks.example/x"},
			Websites: []Website{
				{ID: "W1", ProjectID: "P1", URL: "https://shop.example.com", CreatedAt: created},
			},
		},
	}}
}

func TestSetting_MonitoringOn(t *testing.T) {
	var none *Setting
	if !none.MonitoringOn() {
		t.Fatalf("nil setting must count as enabled")
	}
	if !(&Setting{}).MonitoringOn() {
		t.Fatalf("unset flag must count as enabled")
	}
	if (&Setting{Enabled: boolp(false)}).MonitoringOn() {
		t.Fatalf("explicit false must disable")
	}
	if !(&Setting{Enabled: boolp(true)}).MonitoringOn() {
		t.Fatalf("explicit true must enable")
	}
}

func TestMonitoringConfig_Equal(t *testing.T) {
	a := snapshot()
	b := snapshot()
	if !a.Equal(b) {
		t.Fatalf("identical snapshots must compare equal")
	}

	// nil vs empty website slice is the same state
	a.Projects[0].Websites = nil
	b.Projects[0].Websites = []Website{}
	if !a.Equal(b) {
		t.Fatalf("nil and empty website lists must compare equal")
	}

	a = snapshot()
	b = snapshot()
	b.Projects[0].Setting.Enabled = boolp(false)
	if a.Equal(b) {
		t.Fatalf("flipped enabled flag must compare unequal")
	}

	b = snapshot()
	b.Projects[0].Setting.Enabled = nil
	if a.Equal(b) {
		t.Fatalf("set vs unset enabled flag must compare unequal")
	}

	b = snapshot()
	b.Projects[0].Websites[0].URL = "https://other.example.com"
	if a.Equal(b) {
		t.Fatalf("changed URL must compare unequal")
	}

	b = snapshot()
	b.Projects[0].Setting.IntervalSeconds = 300
	if a.Equal(b) {
		t.Fatalf("changed interval must compare unequal")
	}
}

func TestTargets_EligibilityAndFlatten(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := MonitoringConfig{Projects: []ProjectConfig{
		{
			Project: Project{ID: "P1", Name: "on", CreatedAt: created},
			Setting: &Setting{ProjectID: "P1", IntervalSeconds: 60},
			Websites: []Website{
				{ID: "W1", ProjectID: "P1", URL: "https://a.example.com", CreatedAt: created},
				{ID: "W2", ProjectID: "P1", URL: "https://b.example.com", CreatedAt: created},
			},
		},
		{
			Project:  Project{ID: "P2", Name: "off", CreatedAt: created},
			Setting:  &Setting{ProjectID: "P2", Enabled: boolp(false), IntervalSeconds: 30},
			Websites: []Website{{ID: "W3", ProjectID: "P2", URL: "https://c.example.com", CreatedAt: created}},
		},
		{
			Project: Project{ID: "P3", Name: "empty", CreatedAt: created},
			Setting: &Setting{ProjectID: "P3", IntervalSeconds: 60},
		},
		{
			// no setting at all: eligible, default cadence
			Project:  Project{ID: "P4", Name: "bare", CreatedAt: created},
			Websites: []Website{{ID: "W4", ProjectID: "P4", URL: "https://d.example.com", CreatedAt: created}},
		},
	}}

	targets := cfg.Targets()
	if len(targets) != 3 {
		t.Fatalf("want 3 eligible targets, got %d: %+v", len(targets), targets)
	}
	byID := map[WebsiteID]MonitorTarget{}
	for _, tgt := range targets {
		byID[tgt.WebsiteID] = tgt
	}
	if _, ok := byID["W3"]; ok {
		t.Fatalf("disabled project must contribute no targets")
	}
	if got := byID["W1"].IntervalSeconds; got != 60 {
		t.Fatalf("want interval 60, got %d", got)
	}
	if got := byID["W4"].IntervalSeconds; got != DefaultIntervalSeconds {
		t.Fatalf("want default interval %d for settingless project, got %d", DefaultIntervalSeconds, got)
	}
}

func TestMonitorTarget_Key(t *testing.T) {
	a := MonitorTarget{WebsiteID: "W1", ProjectID: "P1", URL: "https://a", IntervalSeconds: 60}
	b := MonitorTarget{WebsiteID: "W1", ProjectID: "P-other", URL: "https://a", IntervalSeconds: 60}
	if a.Key() != b.Key() {
		t.Fatalf("project id must not be part of the task identity")
	}
	c := a
	c.IntervalSeconds = 300
	if a.Key() == c.Key() {
		t.Fatalf("interval change must change the task identity")
	}
}
