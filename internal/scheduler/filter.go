package scheduler

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/bassista/go_relboard/internal/remote"
	"github.com/bassista/go_relboard/internal/repository"
)

// releaseFilter decides which releases of one repository are shown.
type releaseFilter struct {
	channels    []string
	subChannels []string
	include     *regexp.Regexp
	exclude     *regexp.Regexp
}

// filterFor merges per-repository overrides over the global settings. Invalid
// patterns are ignored; they are rejected on save, so this only happens for
// hand-edited documents.
func filterFor(settings repository.AppSettings, repo repository.TrackedRepository) releaseFilter {
	f := releaseFilter{
		channels:    settings.ReleaseChannels,
		subChannels: settings.PreReleaseSubChannels,
	}
	if len(repo.ReleaseChannels) > 0 {
		f.channels = repo.ReleaseChannels
	}
	if len(repo.PreReleaseSubChannels) > 0 {
		f.subChannels = repo.PreReleaseSubChannels
	}

	include, exclude := settings.IncludeRegex, settings.ExcludeRegex
	if repo.IncludeRegex != "" {
		include = repo.IncludeRegex
	}
	if repo.ExcludeRegex != "" {
		exclude = repo.ExcludeRegex
	}
	f.include = compileOrNil(include)
	f.exclude = compileOrNil(exclude)
	return f
}

func compileOrNil(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return re
}

func (f releaseFilter) allows(r remote.Release) bool {
	if !slices.Contains(f.channels, channelOf(r)) {
		return false
	}
	if r.Prerelease && !r.Draft {
		if sub := preReleaseType(r.Tag); sub != "" && !slices.Contains(f.subChannels, sub) {
			return false
		}
	}
	if f.include != nil && !f.include.MatchString(r.Tag) && !f.include.MatchString(r.Name) {
		return false
	}
	if f.exclude != nil && (f.exclude.MatchString(r.Tag) || f.exclude.MatchString(r.Name)) {
		return false
	}
	return true
}

// newest returns the most recently published release the filter allows.
func (f releaseFilter) newest(releases []remote.Release) (remote.Release, bool) {
	matching := make([]remote.Release, 0, len(releases))
	for _, r := range releases {
		if f.allows(r) {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		return remote.Release{}, false
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].PublishedAt.After(matching[j].PublishedAt)
	})
	return matching[0], true
}

func channelOf(r remote.Release) string {
	switch {
	case r.Draft:
		return "draft"
	case r.Prerelease:
		return "prerelease"
	default:
		return "stable"
	}
}

var preReleaseTokens = regexp.MustCompile(`[a-z]+`)

// preReleaseType finds the first known pre-release keyword in a tag, e.g.
// "rc" in "v2.0.0-rc.1". Tags without one return "".
func preReleaseType(tag string) string {
	for _, token := range preReleaseTokens.FindAllString(strings.ToLower(tag), -1) {
		if slices.Contains(repository.AllPreReleaseTypes, token) {
			return token
		}
	}
	return ""
}
