package domain

// Activity is the work item a frame or timesheet is booked against. It has no
// independent lifecycle in the engine: it travels embedded in whichever Frame
// or Timesheet owns it.
type Activity struct {
	Key         EntityKey
	Name        string
	Description string
	ProjectKey  EntityKey
	Alias       string
}

// Role is a Zebra role (circle/function) a non-individual frame is booked
// under.
type Role struct {
	ID       int
	ParentID *int
	Name     string
	FullName string
	Type     string
	Status   string
}
