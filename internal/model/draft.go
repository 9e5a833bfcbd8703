package model

import "time"

// DraftSnapshot は下書き保存されるウィザードの状態一式を表す。
// フォーム本体と補助配列（創業者・タグ・SNSリンク）、保存時刻を含む。
// ローカル永続化専用であり、上流APIには決して送信されない。
type DraftSnapshot struct {
	Form        SubmissionForm    `json:"form"`
	Founders    []Founder         `json:"founders,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
	SavedAt     time.Time         `json:"saved_at"`
}
