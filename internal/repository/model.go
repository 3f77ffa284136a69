package repository

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Document file names inside the remote container.
const (
	SettingsDocument     = "settings.json"
	RepositoriesDocument = "repositories.json"
)

// ErrInvalid wraps validation failures of values passed to Save.
var ErrInvalid = errors.New("invalid document")

// AllPreReleaseTypes lists the pre-release sub-channels recognised in tags.
var AllPreReleaseTypes = []string{"alpha", "beta", "rc", "canary", "nightly", "preview", "pre"}

var validate = validator.New()

// AppSettings is the settings.json document.
type AppSettings struct {
	TimeFormat            string   `json:"timeFormat" validate:"oneof=12h 24h"`
	Locale                string   `json:"locale" validate:"required,max=16"`
	RefreshInterval       int      `json:"refreshInterval" validate:"min=1,max=1440"` // minutes
	CacheInterval         int      `json:"cacheInterval" validate:"min=1,max=1440"`   // minutes
	ReleasesPerPage       int      `json:"releasesPerPage" validate:"min=1,max=100"`
	ParallelRepoFetches   int      `json:"parallelRepoFetches" validate:"min=1,max=20"`
	ReleaseChannels       []string `json:"releaseChannels" validate:"min=1,dive,oneof=stable prerelease draft"`
	PreReleaseSubChannels []string `json:"preReleaseSubChannels" validate:"dive,oneof=alpha beta rc canary nightly preview pre"`
	ShowAcknowledge       *bool    `json:"showAcknowledge"`
	ShowMarkAsNew         *bool    `json:"showMarkAsNew"`
	IncludeRegex          string   `json:"includeRegex,omitempty"`
	ExcludeRegex          string   `json:"excludeRegex,omitempty"`
	AppriseMaxCharacters  int      `json:"appriseMaxCharacters" validate:"min=0"`
	AppriseTags           string   `json:"appriseTags,omitempty"`
	AppriseFormat         string   `json:"appriseFormat" validate:"oneof=text markdown html"`
}

// DefaultSettings returns a fresh copy of the documented defaults.
func DefaultSettings() AppSettings {
	return AppSettings{
		TimeFormat:            "24h",
		Locale:                "en",
		RefreshInterval:       10,
		CacheInterval:         5,
		ReleasesPerPage:       30,
		ParallelRepoFetches:   1,
		ReleaseChannels:       []string{"stable"},
		PreReleaseSubChannels: slices.Clone(AllPreReleaseTypes),
		ShowAcknowledge:       boolPtr(true),
		ShowMarkAsNew:         boolPtr(true),
		AppriseMaxCharacters:  1800,
		AppriseFormat:         "text",
	}
}

// reconcileSettings fills every unset field of s from the defaults.
// Unset means: empty string, zero number, nil slice, nil pointer.
func reconcileSettings(s AppSettings) AppSettings {
	d := DefaultSettings()
	if s.TimeFormat == "" {
		s.TimeFormat = d.TimeFormat
	}
	if s.Locale == "" {
		s.Locale = d.Locale
	}
	if s.RefreshInterval == 0 {
		s.RefreshInterval = d.RefreshInterval
	}
	if s.CacheInterval == 0 {
		s.CacheInterval = d.CacheInterval
	}
	if s.ReleasesPerPage == 0 {
		s.ReleasesPerPage = d.ReleasesPerPage
	}
	if s.ParallelRepoFetches == 0 {
		s.ParallelRepoFetches = d.ParallelRepoFetches
	}
	if s.ReleaseChannels == nil {
		s.ReleaseChannels = d.ReleaseChannels
	}
	if s.PreReleaseSubChannels == nil {
		s.PreReleaseSubChannels = d.PreReleaseSubChannels
	}
	if s.ShowAcknowledge == nil {
		s.ShowAcknowledge = d.ShowAcknowledge
	}
	if s.ShowMarkAsNew == nil {
		s.ShowMarkAsNew = d.ShowMarkAsNew
	}
	if s.AppriseMaxCharacters == 0 {
		s.AppriseMaxCharacters = d.AppriseMaxCharacters
	}
	if s.AppriseFormat == "" {
		s.AppriseFormat = d.AppriseFormat
	}
	// IncludeRegex, ExcludeRegex and AppriseTags default to unset.
	return s
}

func validateSettings(s AppSettings) error {
	if err := validate.Struct(&s); err != nil {
		return err
	}
	return validateRegexes(s.IncludeRegex, s.ExcludeRegex)
}

// ReleaseSnapshot is the last release seen for a tracked repository.
type ReleaseSnapshot struct {
	Tag         string    `json:"tag"`
	Name        string    `json:"name,omitempty"`
	URL         string    `json:"url,omitempty"`
	Body        string    `json:"body,omitempty"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"publishedAt"`
}

// TrackedRepository is one entry of repositories.json. Override fields left
// empty inherit the global settings.
type TrackedRepository struct {
	ID                    string           `json:"id" validate:"required"`
	URL                   string           `json:"url" validate:"required,url"`
	Owner                 string           `json:"owner" validate:"required"`
	Name                  string           `json:"name" validate:"required"`
	ReleaseChannels       []string         `json:"releaseChannels,omitempty" validate:"omitempty,dive,oneof=stable prerelease draft"`
	PreReleaseSubChannels []string         `json:"preReleaseSubChannels,omitempty" validate:"omitempty,dive,oneof=alpha beta rc canary nightly preview pre"`
	IncludeRegex          string           `json:"includeRegex,omitempty"`
	ExcludeRegex          string           `json:"excludeRegex,omitempty"`
	AppriseTags           string           `json:"appriseTags,omitempty"`
	AppriseFormat         string           `json:"appriseFormat,omitempty" validate:"omitempty,oneof=text markdown html"`
	IsNew                 bool             `json:"isNew"`
	LastSeenReleaseTag    string           `json:"lastSeenReleaseTag,omitempty"`
	LatestRelease         *ReleaseSnapshot `json:"latestRelease,omitempty"`
}

// RepositoryID derives the default identifier from owner and name.
func RepositoryID(owner, name string) string {
	return strings.ToLower(owner + "_" + name)
}

// ParseRepositoryURL extracts owner and name from a GitHub repository URL
// (https://github.com/owner/name, with or without .git or trailing path).
func ParseRepositoryURL(raw string) (owner, name string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse repository url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository url %q has no owner/name path", raw)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// reconcileRepositories normalises a loaded or submitted list: owner, name and
// ID are derived from the URL when missing.
func reconcileRepositories(repos []TrackedRepository) []TrackedRepository {
	out := make([]TrackedRepository, 0, len(repos))
	for _, r := range repos {
		if r.Owner == "" || r.Name == "" {
			if owner, name, err := ParseRepositoryURL(r.URL); err == nil {
				if r.Owner == "" {
					r.Owner = owner
				}
				if r.Name == "" {
					r.Name = name
				}
			}
		}
		if r.ID == "" && r.Owner != "" && r.Name != "" {
			r.ID = RepositoryID(r.Owner, r.Name)
		}
		out = append(out, r)
	}
	return out
}

func validateRepository(r TrackedRepository) error {
	if err := validate.Struct(&r); err != nil {
		return err
	}
	return validateRegexes(r.IncludeRegex, r.ExcludeRegex)
}

func validateRepositories(repos []TrackedRepository) error {
	seen := make(map[string]struct{}, len(repos))
	for i, r := range repos {
		if err := validateRepository(r); err != nil {
			return fmt.Errorf("repository %d (%s): %w", i, r.ID, err)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate repository id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

func validateRegexes(patterns ...string) error {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid regex %q: %w", p, err)
		}
	}
	return nil
}

// SystemStatus is process state about the dashboard itself. It is never
// persisted.
type SystemStatus struct {
	LatestKnownVersion *string    `json:"latestKnownVersion"`
	LastCheckedAt      *time.Time `json:"lastCheckedAt"`
	LatestEtag         *string    `json:"latestEtag"`
	DismissedVersion   *string    `json:"dismissedVersion"`
	LastCheckError     *string    `json:"lastCheckError"`
}

// Clone copies every pointer target.
func (s SystemStatus) Clone() SystemStatus {
	return SystemStatus{
		LatestKnownVersion: clonePtr(s.LatestKnownVersion),
		LastCheckedAt:      clonePtr(s.LastCheckedAt),
		LatestEtag:         clonePtr(s.LatestEtag),
		DismissedVersion:   clonePtr(s.DismissedVersion),
		LastCheckError:     clonePtr(s.LastCheckError),
	}
}

func boolPtr(b bool) *bool { return &b }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
