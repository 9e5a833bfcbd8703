// Package moderation は管理者によるモデレーション操作を提供する。
package moderation

import "github.com/hitoshi/startlinker/internal/model"

// State はモデレーション観点での投稿の状態を表す。
// 投稿のステータスとおすすめフラグの組から導出される。
// featuredは独立したステータスではなくapproved+フラグの表現だが、
// 遷移の判定上は別の状態として扱う。
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateFeatured State = "featured"
	StateRejected State = "rejected"
	StateInactive State = "inactive"
	// StateExpired はサーバー側の時間経過でのみ到達し、
	// モデレーション操作では遷移できない。
	StateExpired State = "expired"
)

// StateOf は投稿のステータスとおすすめフラグからモデレーション状態を導出する。
func StateOf(status model.SubmissionStatus, featured bool) State {
	if status == model.StatusApproved && featured {
		return StateFeatured
	}
	switch status {
	case model.StatusPending:
		return StatePending
	case model.StatusApproved:
		return StateApproved
	case model.StatusRejected:
		return StateRejected
	case model.StatusInactive:
		return StateInactive
	case model.StatusExpired:
		return StateExpired
	default:
		return State(status)
	}
}

// transitions は状態ごとに許可されるモデレーション操作の一覧。
// ここに載っていない組み合わせのうち、到達先が現在の状態と同じ
// 再適用を除くすべてが不正な遷移であり、上流APIを呼ぶ前に
// ローカルで拒否される。
var transitions = map[State][]model.ModerationAction{
	StatePending:  {model.ActionApprove, model.ActionReject},
	StateApproved: {model.ActionFeature, model.ActionDeactivate},
	StateFeatured: {model.ActionUnfeature},
}

// targetStates は各モデレーション操作の到達先状態。
var targetStates = map[model.ModerationAction]State{
	model.ActionApprove:    StateApproved,
	model.ActionReject:     StateRejected,
	model.ActionFeature:    StateFeatured,
	model.ActionUnfeature:  StateApproved,
	model.ActionDeactivate: StateInactive,
}

// CanApply は現在の状態に対して操作が許可されているかを返す。
//
// 到達先状態が現在の状態と一致する再適用（approve済みへのapproveなど）は
// 不正な遷移ではなく、上流APIへそのまま渡される。サーバー側でno-opとして
// 処理されるため、ローカルの状態を壊すことはない。
func CanApply(state State, action model.ModerationAction) bool {
	if target, ok := targetStates[action]; ok && target == state {
		return true
	}
	for _, allowed := range transitions[state] {
		if allowed == action {
			return true
		}
	}
	return false
}
