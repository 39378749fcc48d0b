// Package planner contains the core types for the farming planner server.
package planner

// NoLocationInfo is the location value of items no drop table mentions.
const NoLocationInfo = "정보 없음"

// ============================================
// CATALOG TYPES
// ============================================

// Item is a catalog entry. Items are loaded once and never mutated.
type Item struct {
	Name     string   `json:"name"`
	Rarity   int      `json:"rarity"`
	Tags     []string `json:"tags"`
	Location string   `json:"location"`
	MainStat string   `json:"main_stat,omitempty"`
	SubStat  string   `json:"sub_stat,omitempty"`
	Effects  string   `json:"effects,omitempty"`
	Image    string   `json:"image,omitempty"`
}

// HasTag reports whether the item carries tag.
func (it Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ItemRecord is an item as supplied by the catalog source, before the
// drop table is merged in.
type ItemRecord struct {
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Rarity   int      `json:"rarity" yaml:"rarity" validate:"min=1,max=6"`
	Tags     []string `json:"tags" yaml:"tags" validate:"dive,required"`
	MainStat string   `json:"main_stat,omitempty" yaml:"main_stat"`
	SubStat  string   `json:"sub_stat,omitempty" yaml:"sub_stat"`
	Effects  string   `json:"effects,omitempty" yaml:"effects"`
	Image    string   `json:"image,omitempty" yaml:"image"`
}

// LocationRecord is one farming location and the item names it drops.
type LocationRecord struct {
	Name      string   `json:"name" yaml:"name" validate:"required"`
	DropTable []string `json:"drop_table" yaml:"drop_table" validate:"dive,required"`
}

// ============================================
// OWNERSHIP TYPES
// ============================================

// Status is the player's relation to an item.
type Status int

const (
	StatusNone   Status = 0
	StatusTarget Status = 1
	StatusOwned  Status = 2
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	return s == StatusNone || s == StatusTarget || s == StatusOwned
}

// Ownership maps item names to their status. Items with StatusNone are
// absent; a present key always holds StatusTarget or StatusOwned.
type Ownership map[string]Status

// Get returns the status of name, StatusNone when absent.
func (o Ownership) Get(name string) Status {
	return o[name]
}

// Set records status for name, deleting the key for StatusNone.
func (o Ownership) Set(name string, status Status) {
	if status == StatusNone {
		delete(o, name)
		return
	}
	o[name] = status
}

// Clone returns an independent copy.
func (o Ownership) Clone() Ownership {
	c := make(Ownership, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Targets returns the names with StatusTarget.
func (o Ownership) Targets() []string {
	var names []string
	for name, st := range o {
		if st == StatusTarget {
			names = append(names, name)
		}
	}
	return names
}

// ItemView is a catalog item together with the player's status for it.
type ItemView struct {
	Item
	Status Status `json:"status"`
}

// StatusAction is a user intent that changes an item's status.
type StatusAction string

const (
	// ActionToggle flips none to target and anything else back to none.
	ActionToggle StatusAction = "toggle"
	// ActionOwn marks the item as owned.
	ActionOwn StatusAction = "own"
	// ActionClear removes any status.
	ActionClear StatusAction = "clear"
)

// IsValid checks if the action is known.
func (a StatusAction) IsValid() bool {
	switch a {
	case ActionToggle, ActionOwn, ActionClear:
		return true
	}
	return false
}

// ============================================
// DECISION TYPES
// ============================================

// Verdict is the keep/discard recommendation for the current filter.
type Verdict string

const (
	VerdictPrompt  Verdict = "PROMPT"
	VerdictDiscard Verdict = "DISCARD"
	VerdictKeep    Verdict = "KEEP"
	VerdictExplore Verdict = "EXPLORE"
)

// DecisionReason tells the renderer which text pair goes with a verdict.
type DecisionReason string

const (
	ReasonNoFilter       DecisionReason = "no_filter"
	ReasonNoMatch        DecisionReason = "no_match"
	ReasonAllOwned       DecisionReason = "all_owned"
	ReasonBelowRarity    DecisionReason = "below_rarity"
	ReasonFullySpecified DecisionReason = "fully_specified"
	ReasonUndetermined   DecisionReason = "undetermined"
)

// DecisionRequest is the input for the decide operation.
type DecisionRequest struct {
	ActiveTags   []string `json:"active_tags" validate:"dive,required"`
	SearchQuery  string   `json:"search_query"`
	TargetRarity int      `json:"target_rarity" validate:"omitempty,oneof=5 6"`
}

// Decision is the output of the decide operation.
type Decision struct {
	Verdict Verdict        `json:"verdict"`
	Reason  DecisionReason `json:"reason"`

	// Counts over the tag-filtered set; the search query does not narrow them.
	MatchCount     int `json:"match_count"`
	CandidateCount int `json:"candidate_count"`
	ValidCount     int `json:"valid_count"`

	// Items is the display list: tag-filtered and search-filtered.
	Items       []Item `json:"items"`
	ResultCount int    `json:"result_count"`
}

var decisionText = map[DecisionReason][2]string{
	ReasonNoFilter:       {"이거 갈아도 됨?", "필터에서 옵션을 선택해주세요"},
	ReasonNoMatch:        {"갈아", "필요없음"},
	ReasonAllOwned:       {"갈아", "필요없음 (모두 보유중)"},
	ReasonBelowRarity:    {"갈아", "필요없음"},
	ReasonFullySpecified: {"갈지마", "킵하고 잠금ㄱ"},
	ReasonUndetermined:   {"옵션 더 선택", "아직 판단 못함"},
}

// Display returns the fixed headline and subtext for the decision.
func (d Decision) Display() (headline, subtext string) {
	pair := decisionText[d.Reason]
	return pair[0], pair[1]
}

// DecisionResponse is a decision with its display text.
type DecisionResponse struct {
	Decision
	Headline string `json:"headline"`
	Subtext  string `json:"subtext"`
}

// NewDecisionResponse attaches the display text to d.
func NewDecisionResponse(d Decision) DecisionResponse {
	headline, subtext := d.Display()
	return DecisionResponse{Decision: d, Headline: headline, Subtext: subtext}
}

// ============================================
// FARMING PLAN TYPES
// ============================================

// Candidate is an item considered by the farming planner.
type Candidate struct {
	Item     Item `json:"item"`
	Weight   int  `json:"weight"`
	IsTarget bool `json:"is_target"`
}

// PlanMember is a candidate droppable at a plan's location.
type PlanMember struct {
	Item       Item `json:"item"`
	Weight     int  `json:"weight"`
	IsTarget   bool `json:"is_target"`
	IsPriority bool `json:"is_priority,omitempty"`
	MatchScore int  `json:"match_score"`
}

// LocationPlan is the planner output for one location.
type LocationPlan struct {
	LocationName     string       `json:"location_name"`
	Items            []PlanMember `json:"items"`
	Score            int          `json:"score"`
	Count            int          `json:"count"`
	TargetCount      int          `json:"target_count"`
	NormalCount      int          `json:"normal_count"`
	TargetEfficiency int          `json:"target_efficiency"`
	RecommendStats   []string     `json:"recommend_stats"`
	RecommendSeries  string       `json:"recommend_series,omitempty"`
}

// HasMember reports whether the named item is droppable at the location.
func (p LocationPlan) HasMember(name string) bool {
	for _, m := range p.Items {
		if m.Item.Name == name {
			return true
		}
	}
	return false
}

// FarmingPlanResponse is the output for the farming_plan operation.
type FarmingPlanResponse struct {
	Plans        []LocationPlan `json:"plans"`
	TargetCount  int            `json:"target_count"`
	Priority     string         `json:"priority,omitempty"`
	Unlocated    []string       `json:"unlocated,omitempty"`
	ProcessingMs int64          `json:"processing_ms"`
}

// MatchScoreResponse is the output for the match_score operation.
type MatchScoreResponse struct {
	ItemName     string `json:"item_name"`
	LocationName string `json:"location_name"`
	Score        int    `json:"score"`
}

// ============================================
// TASK TYPES
// ============================================

// TaskType separates daily from weekly tasks.
type TaskType string

const (
	TaskDaily  TaskType = "daily"
	TaskWeekly TaskType = "weekly"
)

// IsValid checks if the task type is known.
func (t TaskType) IsValid() bool {
	return t == TaskDaily || t == TaskWeekly
}

// TaskRecord is a recurring task as supplied by the catalog source.
type TaskRecord struct {
	ID           string   `json:"id" yaml:"id" validate:"required"`
	Type         TaskType `json:"type" yaml:"type" validate:"oneof=daily weekly"`
	Title        string   `json:"title" yaml:"title" validate:"required"`
	Desc         string   `json:"desc,omitempty" yaml:"desc"`
	Steps        []string `json:"steps,omitempty" yaml:"steps"`
	Access       string   `json:"access,omitempty" yaml:"access"`
	DefaultOrder int      `json:"default_order,omitempty" yaml:"default_order"`
}

// Subtask is one checkable step of a task.
type Subtask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Task is a task with its derived subtasks.
type Task struct {
	TaskRecord
	Subtasks []Subtask `json:"subtasks"`
}

// TaskOrder is the persisted custom order per tab.
type TaskOrder struct {
	Daily  []string `json:"daily"`
	Weekly []string `json:"weekly"`
}

// For returns the order for a tab.
func (o TaskOrder) For(tab TaskType) []string {
	if tab == TaskWeekly {
		return o.Weekly
	}
	return o.Daily
}

// TaskDefaults seeds order and hidden tasks on first use.
type TaskDefaults struct {
	Order       TaskOrder       `json:"order" yaml:"order"`
	HiddenTasks map[string]bool `json:"hiddenTasks" yaml:"hiddenTasks"`
}

// ViewMode is the checklist presentation mode.
type ViewMode string

const (
	ModeSimple ViewMode = "simple"
	ModeDetail ViewMode = "detail"
)

// TodoState is the persisted task record.
type TodoState struct {
	LastLogin     int64                      `json:"lastLogin"`
	Completed     map[string]bool            `json:"completed"`
	SubStatus     map[string]map[string]bool `json:"subStatus"`
	Order         TaskOrder                  `json:"order"`
	HiddenTasks   map[string]bool            `json:"hiddenTasks"`
	HideCompleted bool                       `json:"hideCompleted"`
	Mode          ViewMode                   `json:"mode"`
}

// TaskSettings changes checklist presentation. Unset fields are left as is.
type TaskSettings struct {
	HideCompleted *bool    `json:"hide_completed,omitempty"`
	Mode          ViewMode `json:"mode,omitempty" validate:"omitempty,oneof=simple detail"`
}

// TaskListResponse is the output for the list_tasks operation.
type TaskListResponse struct {
	Tab           TaskType `json:"tab"`
	Tasks         []Task   `json:"tasks"`
	Progress      int      `json:"progress"`
	HideCompleted bool     `json:"hide_completed"`
	Mode          ViewMode `json:"mode"`
	Hidden        []Task   `json:"hidden,omitempty"`
}

// ============================================
// CATALOG STATUS
// ============================================

// CatalogStatus summarises loaded data.
type CatalogStatus struct {
	Items         int    `json:"items"`
	Locations     int    `json:"locations"`
	Tasks         int    `json:"tasks"`
	Tags          int    `json:"tags"`
	Targets       int    `json:"targets"`
	Owned         int    `json:"owned"`
	ItemsSyncedAt string `json:"items_synced_at,omitempty"`
	ItemsSynced   string `json:"items_synced,omitempty"`
}
