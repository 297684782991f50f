package domain

import "time"

type WebsiteID string

// DefaultIntervalSeconds applies when a project has no explicit setting.
const DefaultIntervalSeconds = 300

// Notification modes accepted in Setting.NotifyMode. Empty means no
// notifications for the project.
const (
	NotifySlack    = "slack"
	NotifyTelegram = "telegram"
	NotifyAll      = "all"
)

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Website struct {
	ID        WebsiteID `json:"id"`
	ProjectID string    `json:"project_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Setting carries per-project monitoring knobs. Enabled is a tri-state:
// nil means the flag was never set, which counts as enabled.
type Setting struct {
	ProjectID       string `json:"project_id"`
	Enabled         *bool  `json:"enabled"`
	IntervalSeconds int    `json:"interval_seconds"`
	NotifyMode      string `json:"notify_mode"`
	Recipient       string `json:"recipient"`
}

// MonitoringOn reports whether probes should run for the owning project.
// A nil receiver (project without a setting) counts as on.
func (s *Setting) MonitoringOn() bool {
	if s == nil || s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

type ProjectConfig struct {
	Project  Project   `json:"project"`
	Setting  *Setting  `json:"setting,omitempty"`
	Websites []Website `json:"websites"`
}

// IntervalSeconds returns the project's check cadence in seconds.
func (p ProjectConfig) IntervalSeconds() int {
	if p.Setting != nil && p.Setting.IntervalSeconds > 0 {
		return p.Setting.IntervalSeconds
	}
	return DefaultIntervalSeconds
}

// MonitoringConfig is the desired-state snapshot the poller fetches.
// Stores return projects and websites in a stable order so two fetches of
// identical state compare equal.
type MonitoringConfig struct {
	Projects []ProjectConfig `json:"projects"`
}

func (c MonitoringConfig) Equal(o MonitoringConfig) bool {
	if len(c.Projects) != len(o.Projects) {
		return false
	}
	for i := range c.Projects {
		if !c.Projects[i].Equal(o.Projects[i]) {
			return false
		}
	}
	return true
}

func (p ProjectConfig) Equal(o ProjectConfig) bool {
	if p.Project.ID != o.Project.ID || p.Project.Name != o.Project.Name {
		return false
	}
	if !p.Project.CreatedAt.Equal(o.Project.CreatedAt) {
		return false
	}
	if !settingEqual(p.Setting, o.Setting) {
		return false
	}
	if len(p.Websites) != len(o.Websites) {
		return false
	}
	for i := range p.Websites {
		if !websiteEqual(p.Websites[i], o.Websites[i]) {
			return false
		}
	}
	return true
}

func settingEqual(a, b *Setting) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.ProjectID != b.ProjectID ||
		a.IntervalSeconds != b.IntervalSeconds ||
		a.NotifyMode != b.NotifyMode ||
		a.Recipient != b.Recipient {
		return false
	}
	if a.Enabled == nil || b.Enabled == nil {
		return a.Enabled == nil && b.Enabled == nil
	}
	return *a.Enabled == *b.Enabled
}

func websiteEqual(a, b Website) bool {
	return a.ID == b.ID &&
		a.ProjectID == b.ProjectID &&
		a.URL == b.URL &&
		a.CreatedAt.Equal(b.CreatedAt)
}

// MonitorTarget is one schedulable unit of work: a website probed at a
// fixed cadence. Two targets with the same Key are the same task.
type MonitorTarget struct {
	WebsiteID       WebsiteID
	ProjectID       string
	URL             string
	IntervalSeconds int
}

// TargetKey is the task identity: a target whose website, URL, or cadence
// changed is a different task.
type TargetKey struct {
	WebsiteID       WebsiteID
	URL             string
	IntervalSeconds int
}

func (t MonitorTarget) Key() TargetKey {
	return TargetKey{WebsiteID: t.WebsiteID, URL: t.URL, IntervalSeconds: t.IntervalSeconds}
}

// Targets flattens the snapshot into the eligible desired set: projects
// with monitoring on and at least one website. Disabled or empty projects
// contribute nothing.
func (c MonitoringConfig) Targets() []MonitorTarget {
	var out []MonitorTarget
	for _, pc := range c.Projects {
		if !pc.Setting.MonitoringOn() {
			continue
		}
		if len(pc.Websites) == 0 {
			continue
		}
		interval := pc.IntervalSeconds()
		for _, w := range pc.Websites {
			out = append(out, MonitorTarget{
				WebsiteID:       w.ID,
				ProjectID:       pc.Project.ID,
				URL:             w.URL,
				IntervalSeconds: interval,
			})
		}
	}
	return out
}
