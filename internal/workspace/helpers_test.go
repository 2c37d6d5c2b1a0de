package workspace

import (
	"fmt"

	"github.com/shaped-ai/playground/pkg/core"
)

// sequentialIDs returns an id generator yielding prefix1, prefix2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// twoTabState is the shared fixture: t1 (active, yaml with params) and t2 (sql).
func twoTabState() *core.QueryPageState {
	return &core.QueryPageState{
		Tabs: []core.QueryTabState{
			{
				ID:       "t1",
				Name:     "Trending",
				Content:  "query:\n  type: rank\n  from: item\n",
				Language: core.LanguageYAML,
				Engine:   "movies",
				ParameterValues: map[string]core.ParamValue{
					"user_id":   core.StringParam("u-42"),
					"limit":     core.NumberParam(25),
					"diversify": core.BoolParam(true),
				},
				PreviewMode: core.PreviewModeCards,
			},
			{
				ID:           "t2",
				Name:         "Ad hoc",
				Content:      "SELECT * FROM items WHERE title LIKE '%café%'",
				Language:     core.LanguageSQL,
				EditorMode:   core.EditorModeSQL,
				SavedQueryID: "saved-7",
			},
		},
		ActiveTabID: "t1",
	}
}

// changeRecorder collects store changes.
type changeRecorder struct {
	changes []Change
}

func (r *changeRecorder) record(ch Change) {
	r.changes = append(r.changes, ch)
}
