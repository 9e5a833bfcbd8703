package model

import "time"

// ClaimStatus は所有権申請の審査ステータスを表す。
type ClaimStatus string

const (
	// ClaimStatusPending は審査待ち状態。メール認証の有無はEmailVerifiedで区別する。
	ClaimStatusPending ClaimStatus = "pending"
	// ClaimStatusApproved は承認済み状態。
	ClaimStatusApproved ClaimStatus = "approved"
	// ClaimStatusRejected は却下状態。
	ClaimStatusRejected ClaimStatus = "rejected"
	// ClaimStatusExpired は期限切れ状態。サーバー側の時間経過でのみ到達する。
	ClaimStatusExpired ClaimStatus = "expired"
)

// Valid は既知の申請ステータスかどうかを返す。
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected, ClaimStatusExpired:
		return true
	default:
		return false
	}
}

// Terminal は終端状態（クライアントからは不変）かどうかを返す。
func (s ClaimStatus) Terminal() bool {
	switch s {
	case ClaimStatusApproved, ClaimStatusRejected, ClaimStatusExpired:
		return true
	default:
		return false
	}
}

// Claim はスタートアッププロフィールに対する所有権申請を表す。
// 検証・ドメイン一致の各インジケータはサーバーが算出した値を
// そのまま保持し、クライアント側では再計算しない。
type Claim struct {
	ID          int64
	StartupID   int64
	StartupName string

	Email    string
	Position string
	Reason   string

	EmailVerified    bool
	StartupDomain    string
	EmailDomainValid *bool // サーバーが判定できない場合はnil

	Status      ClaimStatus
	ReviewNotes string

	CreatedAt time.Time
	ExpiresAt *time.Time
}

// ClaimStage は一覧表示用の申請フェーズを表す。
// pendingをメール認証の有無で2つのフェーズに分解したもの。
type ClaimStage string

const (
	// ClaimStageAwaitingVerification はメール認証待ちの審査前フェーズ。
	ClaimStageAwaitingVerification ClaimStage = "awaiting_verification"
	// ClaimStageUnderReview はメール認証済みの管理者審査待ちフェーズ。
	ClaimStageUnderReview ClaimStage = "under_review"
	// ClaimStageApproved は承認済みフェーズ。
	ClaimStageApproved ClaimStage = "approved"
	// ClaimStageRejected は却下フェーズ。
	ClaimStageRejected ClaimStage = "rejected"
	// ClaimStageExpired は期限切れフェーズ。
	ClaimStageExpired ClaimStage = "expired"
)

// Stage はサーバー提供のステータスとメール認証フラグから表示フェーズを導出する。
// ステータス自体を書き換えることはない。
func (c *Claim) Stage() ClaimStage {
	switch c.Status {
	case ClaimStatusPending:
		if c.EmailVerified {
			return ClaimStageUnderReview
		}
		return ClaimStageAwaitingVerification
	case ClaimStatusApproved:
		return ClaimStageApproved
	case ClaimStatusRejected:
		return ClaimStageRejected
	default:
		return ClaimStageExpired
	}
}
