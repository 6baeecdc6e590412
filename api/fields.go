package api

// FieldUpdate はYouTrackイシューのカスタムフィールド更新1種を表します
// 各フィールドはAPI上で固有の$typeとバリュー形状を持つため、
// 更新種別ごとに専用の型でワイヤー形状を組み立てます
type FieldUpdate interface {
	// FieldName は更新対象のカスタムフィールド名を返します
	FieldName() string
	// Payload はcustomFields配列の1要素となるペイロードを返します
	Payload() map[string]interface{}
}

// StateUpdate はワークフローステートの更新です
type StateUpdate struct {
	State string
}

// FieldName はフィールド名を返します
func (u StateUpdate) FieldName() string { return "State" }

// Payload はワイヤーペイロードを返します
func (u StateUpdate) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":  "State",
		"$type": "StateIssueCustomField",
		"value": map[string]string{
			"name":  u.State,
			"$type": "StateBundleElement",
		},
	}
}

// AssigneeUpdate は担当者（複数可）の更新です
type AssigneeUpdate struct {
	Logins []string
}

// FieldName はフィールド名を返します
func (u AssigneeUpdate) FieldName() string { return "Assignee" }

// Payload はワイヤーペイロードを返します
func (u AssigneeUpdate) Payload() map[string]interface{} {
	values := make([]map[string]string, 0, len(u.Logins))
	for _, login := range u.Logins {
		values = append(values, map[string]string{"login": login})
	}
	return map[string]interface{}{
		"name":  "Assignee",
		"$type": "MultiUserIssueCustomField",
		"value": values,
	}
}

// SprintUpdate はスプリントの更新です
type SprintUpdate struct {
	Sprint string
}

// FieldName はフィールド名を返します
func (u SprintUpdate) FieldName() string { return "Sprints" }

// Payload はワイヤーペイロードを返します
func (u SprintUpdate) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":  "Sprints",
		"$type": "MultiVersionIssueCustomField",
		"value": []map[string]string{{"name": u.Sprint}},
	}
}

// LabelUpdate はラベル（複数可）の更新です
type LabelUpdate struct {
	Labels []string
}

// FieldName はフィールド名を返します
func (u LabelUpdate) FieldName() string { return "Label" }

// Payload はワイヤーペイロードを返します
func (u LabelUpdate) Payload() map[string]interface{} {
	values := make([]map[string]string, 0, len(u.Labels))
	for _, label := range u.Labels {
		values = append(values, map[string]string{"name": label})
	}
	return map[string]interface{}{
		"name":  "Label",
		"$type": "MultiEnumIssueCustomField",
		"value": values,
	}
}

// StoryPointsUpdate はストーリーポイントの更新です
type StoryPointsUpdate struct {
	Points int
}

// FieldName はフィールド名を返します
func (u StoryPointsUpdate) FieldName() string { return "Story points" }

// Payload はワイヤーペイロードを返します
func (u StoryPointsUpdate) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":  "Story points",
		"$type": "SimpleIssueCustomField",
		"value": u.Points,
	}
}

// PriorityUpdate は優先度の更新です
type PriorityUpdate struct {
	Priority string
}

// FieldName はフィールド名を返します
func (u PriorityUpdate) FieldName() string { return "Priority" }

// Payload はワイヤーペイロードを返します
func (u PriorityUpdate) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":  "Priority",
		"$type": "SingleEnumIssueCustomField",
		"value": map[string]string{"name": u.Priority},
	}
}
