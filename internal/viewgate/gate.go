// Package viewgate decides which application views and navigation entries a
// user may reach, and when the current view must be redirected.
package viewgate

// DefaultView is where users without the required capability land.
const DefaultView = "ah-balancer"

// Requirement is the capability a view needs.
type Requirement int

const (
	RequiresNothing Requirement = iota
	RequiresAdmin
	RequiresInventory
)

// NavItem is one navigation entry.
type NavItem struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	Section  string      `json:"section"`
	Requires Requirement `json:"-"`
}

// Navigation lists every view in display order.
var Navigation = []NavItem{
	{ID: DefaultView, Label: "AH Balancer", Section: "Tools"},
	{ID: "jobs", Label: "Saved Jobs", Section: "Tools"},
	{ID: "inventory", Label: "Inventory", Section: "Operations", Requires: RequiresInventory},
	{ID: "accounting", Label: "Accounting", Section: "Finance", Requires: RequiresInventory},
	{ID: "invoices", Label: "Invoices", Section: "Finance", Requires: RequiresInventory},
	{ID: "bills", Label: "Bills", Section: "Finance", Requires: RequiresInventory},
	{ID: "purchase-orders", Label: "Purchase Orders", Section: "Finance", Requires: RequiresInventory},
	{ID: "contacts", Label: "Contacts", Section: "Finance", Requires: RequiresInventory},
	{ID: "reports", Label: "Reports", Section: "Finance", Requires: RequiresInventory},
	{ID: "admin", Label: "Admin Panel", Section: "Administration", Requires: RequiresAdmin},
}

// State is the permission signal the gate reacts to.
type State struct {
	IsAdmin          bool `json:"is_admin"`
	CanViewInventory bool `json:"can_view_inventory"`
	Loading          bool `json:"loading"`
}

// Phase is the gate's lifecycle stage.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseGranted Phase = "granted"
	PhaseDenied  Phase = "denied"
)

// Decision is the outcome for a requested view.
type Decision struct {
	View     string    `json:"view"`
	Phase    Phase     `json:"phase"`
	Redirect string    `json:"redirect,omitempty"`
	Visible  []NavItem `json:"visible"`
}

// Allowed reports whether state satisfies the requirement.
func (s State) Allowed(req Requirement) bool {
	switch req {
	case RequiresAdmin:
		return s.IsAdmin
	case RequiresInventory:
		return s.CanViewInventory
	default:
		return true
	}
}

// Visible returns the navigation entries the state may see. While loading
// only ungated entries are shown.
func Visible(s State) []NavItem {
	out := make([]NavItem, 0, len(Navigation))
	for _, item := range Navigation {
		if s.Loading && item.Requires != RequiresNothing {
			continue
		}
		if s.Allowed(item.Requires) {
			out = append(out, item)
		}
	}
	return out
}

// Decide evaluates a requested view. No redirect is issued while loading.
// Unknown views redirect like denied ones.
func Decide(s State, view string) Decision {
	d := Decision{View: view, Visible: Visible(s)}
	if s.Loading {
		d.Phase = PhaseLoading
		return d
	}
	item, ok := lookup(view)
	if ok && s.Allowed(item.Requires) {
		d.Phase = PhaseGranted
		return d
	}
	d.Phase = PhaseDenied
	d.Redirect = DefaultView
	return d
}

func lookup(view string) (NavItem, bool) {
	for _, item := range Navigation {
		if item.ID == view {
			return item, true
		}
	}
	return NavItem{}, false
}

// Gate tracks one session's current view across permission updates.
type Gate struct {
	view     string
	state    State
	decision Decision
}

// NewGate starts a gate in the loading phase for the requested view.
func NewGate(view string) *Gate {
	if view == "" {
		view = DefaultView
	}
	g := &Gate{view: view, state: State{Loading: true}}
	g.decision = Decide(g.state, view)
	return g
}

// View returns the current view, after any redirect.
func (g *Gate) View() string {
	return g.view
}

// Decision returns the latest decision.
func (g *Gate) Decision() Decision {
	return g.decision
}

// Apply feeds a new permission state. Once resolved, a loading state is
// ignored until Refresh is called.
func (g *Gate) Apply(s State) Decision {
	if s.Loading && g.decision.Phase != PhaseLoading {
		return g.decision
	}
	g.state = s
	return g.evaluate()
}

// Navigate changes the requested view and re-evaluates it.
func (g *Gate) Navigate(view string) Decision {
	g.view = view
	if g.state.Loading {
		g.decision = Decide(g.state, view)
		return g.decision
	}
	return g.evaluate()
}

// Refresh re-enters the loading phase ahead of a full permission reload.
func (g *Gate) Refresh() Decision {
	g.state = State{Loading: true}
	g.decision = Decide(g.state, g.view)
	return g.decision
}

func (g *Gate) evaluate() Decision {
	d := Decide(g.state, g.view)
	if d.Redirect != "" {
		g.view = d.Redirect
	}
	g.decision = d
	return d
}
