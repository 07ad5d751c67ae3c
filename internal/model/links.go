package model

// ProjectItem links an Item to a Project.
type ProjectItem struct {
	ProjectID string `json:"project_id"`
	ItemID    string `json:"item_id"`
}

// ObjectiveItem links an Item to an Objective.
type ObjectiveItem struct {
	ObjectiveID string `json:"objective_id"`
	ItemID      string `json:"item_id"`
}

// BimElementObjective links a BimElement to an Objective.
type BimElementObjective struct {
	ObjectiveID  string `json:"objective_id"`
	BimElementID string `json:"bim_element_id"`
}
