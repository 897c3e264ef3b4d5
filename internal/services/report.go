package services

import (
	"sort"
	"strings"
	"time"

	"tempora/internal/domain"
)

// NoIssueKey is the synthetic bucket for frames whose description carries no
// issue key. It always sorts last.
const NoIssueKey = "(no issue key)"

// IssueKeyTotal is the tracked time attributed to one issue key.
type IssueKeyTotal struct {
	Key   string
	Total time.Duration
}

// ActivityReport groups issue-key totals under one activity.
type ActivityReport struct {
	Name      string
	Total     time.Duration
	IssueKeys []IssueKeyTotal
}

// ProjectReport groups activity reports under one project.
type ProjectReport struct {
	Name       string
	Total      time.Duration
	Activities []ActivityReport
}

// Report is the project → activity → issue-key aggregation of a frame
// collection.
type Report struct {
	From     time.Time
	To       time.Time
	Total    time.Duration
	Projects []ProjectReport
}

// GenerateReport reduces completed frames into per-project, per-activity,
// per-issue-key time totals. A frame carrying several issue keys has its
// duration split pro-rata: duration/n floored to each key, integer remainder
// to the first, so issue-key totals always sum exactly to the activity total.
// Active frames are skipped.
func GenerateReport(frames []domain.Frame, from, to time.Time) Report {
	type activityAgg struct {
		name  string
		total time.Duration
		keys  map[string]time.Duration
	}
	type projectAgg struct {
		name       string
		total      time.Duration
		activities map[string]*activityAgg
	}

	projects := map[string]*projectAgg{}
	report := Report{From: from, To: to}

	for _, frame := range frames {
		if !frame.Completed() {
			continue
		}
		duration := frame.Stop.Sub(frame.Start)

		projectID := frame.Activity.ProjectKey.String()
		project, ok := projects[projectID]
		if !ok {
			project = &projectAgg{
				name:       projectName(frame.Activity),
				activities: map[string]*activityAgg{},
			}
			projects[projectID] = project
		}
		project.total += duration
		report.Total += duration

		activityID := frame.Activity.Key.String()
		activity, ok := project.activities[activityID]
		if !ok {
			activity = &activityAgg{
				name: frame.Activity.Name,
				keys: map[string]time.Duration{},
			}
			project.activities[activityID] = activity
		}
		activity.total += duration

		keys := frame.IssueKeys
		if len(keys) == 0 {
			keys = []string{NoIssueKey}
		}
		// Pro-rata split, remainder to the first key: the shares always sum
		// back to the frame's full duration.
		n := time.Duration(len(keys))
		share := duration / n
		remainder := duration % n
		for i, key := range keys {
			if i == 0 {
				activity.keys[key] += share + remainder
			} else {
				activity.keys[key] += share
			}
		}
	}

	for _, project := range projects {
		p := ProjectReport{Name: project.name, Total: project.total}
		for _, activity := range project.activities {
			a := ActivityReport{Name: activity.name, Total: activity.total}
			for key, total := range activity.keys {
				a.IssueKeys = append(a.IssueKeys, IssueKeyTotal{Key: key, Total: total})
			}
			sortIssueKeyTotals(a.IssueKeys)
			p.Activities = append(p.Activities, a)
		}
		sort.Slice(p.Activities, func(i, j int) bool {
			return caselessLess(p.Activities[i].Name, p.Activities[j].Name)
		})
		report.Projects = append(report.Projects, p)
	}
	sort.Slice(report.Projects, func(i, j int) bool {
		return caselessLess(report.Projects[i].Name, report.Projects[j].Name)
	})

	return report
}

// IssueKeyGroup is the tracked time for one (issue-key set, activity) pair.
type IssueKeyGroup struct {
	IssueKeys []string
	Activity  string
	Total     time.Duration
}

// GenerateReportByIssueKey groups completed frames by their whole sorted
// issue-key set combined with the activity. The full frame duration is
// attributed to the group; there is no pro-rata splitting.
func GenerateReportByIssueKey(frames []domain.Frame, from, to time.Time) []IssueKeyGroup {
	type groupKey struct {
		keys     string
		activity string
	}

	groups := map[groupKey]*IssueKeyGroup{}
	for _, frame := range frames {
		if !frame.Completed() {
			continue
		}

		keys := append([]string(nil), frame.IssueKeys...)
		if len(keys) == 0 {
			keys = []string{NoIssueKey}
		}
		sort.Strings(keys)

		gk := groupKey{keys: strings.Join(keys, ","), activity: frame.Activity.Key.String()}
		group, ok := groups[gk]
		if !ok {
			group = &IssueKeyGroup{IssueKeys: keys, Activity: frame.Activity.Name}
			groups[gk] = group
		}
		group.Total += frame.Stop.Sub(frame.Start)
	}

	result := make([]IssueKeyGroup, 0, len(groups))
	for _, group := range groups {
		result = append(result, *group)
	}
	sort.Slice(result, func(i, j int) bool {
		if !strings.EqualFold(result[i].Activity, result[j].Activity) {
			return caselessLess(result[i].Activity, result[j].Activity)
		}
		a, b := result[i].IssueKeys, result[j].IssueKeys
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return issueKeyLess(a[k], b[k])
			}
		}
		return len(a) < len(b)
	})
	return result
}

func projectName(activity domain.Activity) string {
	// The project's display name travels on the embedded activity; fall back
	// to the canonical id for frames recorded without one.
	if activity.Alias != "" {
		return activity.Alias
	}
	return activity.ProjectKey.String()
}

func sortIssueKeyTotals(totals []IssueKeyTotal) {
	sort.Slice(totals, func(i, j int) bool {
		return issueKeyLess(totals[i].Key, totals[j].Key)
	})
}

// issueKeyLess orders issue keys case-insensitively with the synthetic
// no-issue-key bucket always last.
func issueKeyLess(a, b string) bool {
	if a == NoIssueKey {
		return false
	}
	if b == NoIssueKey {
		return true
	}
	return caselessLess(a, b)
}

func caselessLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return a < b
	}
	return la < lb
}
