// Package progress はウィザードフォームの完成度推定を提供する。
//
// 推定値はあくまでUI表示用の参考値であり、送信可否の判定には使用しない。
// 送信可否はvalidatorの検証結果のみで決まる。
// 純粋関数として実装され、同一入力に対して常に同一の値を返す。
package progress

import (
	"unicode/utf8"

	"github.com/hitoshi/startlinker/internal/model"
)

// 完成度の配点。必須フィールド群が70%を占め、
// 創業者・カバー画像・任意フィールド群が10%ずつを占める。
const (
	requiredWeight = 70
	foundersWeight = 10
	coverWeight    = 10
	optionalWeight = 10
)

// descriptionCountedAt は説明文が必須フィールドとして
// カウントされる最小文字数。検証ルールの下限と揃える。
const descriptionCountedAt = 50

// Estimate はフォームの完成度を0〜100のパーセントで返す。
// 入力を変更しない。
func Estimate(form *model.SubmissionForm, founders []model.Founder) int {
	total := 0

	total += requiredScore(form)

	// 名前入りの創業者が1人以上いれば加点
	if hasNamedFounder(founders) {
		total += foundersWeight
	}

	// カバー画像はファイル添付またはURL指定のどちらでも満たされる
	if form.HasCoverFile || form.CoverImageURL != "" {
		total += coverWeight
	}

	total += optionalScore(form)

	return total
}

// requiredScore は必須フィールドの充足率に応じた配点を返す。
// 説明文は最小文字数に達している場合のみ充足とみなす。
func requiredScore(form *model.SubmissionForm) int {
	fields := []bool{
		form.Name != "",
		utf8.RuneCountInString(form.Description) >= descriptionCountedAt,
		form.Category != "",
		form.Location != "",
	}

	if form.Kind == model.KindStartup {
		fields = append(fields,
			form.EmployeeCount != "",
			form.FoundedYear != "",
		)
	} else {
		fields = append(fields,
			form.JobType != "",
			form.CompanyEmail != "",
			form.ApplicationDeadline != "",
			form.ExpiresAt != "",
		)
	}

	filled := 0
	for _, ok := range fields {
		if ok {
			filled++
		}
	}

	return requiredWeight * filled / len(fields)
}

// optionalScore は任意フィールド（Webサイト、ビジネスモデル）の
// 充足数に応じた配点を比例配分で返す。
func optionalScore(form *model.SubmissionForm) int {
	optional := []bool{
		form.Website != "",
		form.BusinessModel != "",
	}

	filled := 0
	for _, ok := range optional {
		if ok {
			filled++
		}
	}

	return optionalWeight * filled / len(optional)
}

// hasNamedFounder は名前が入力された創業者が1人以上いるかを返す。
func hasNamedFounder(founders []model.Founder) bool {
	for _, f := range founders {
		if f.Name != "" {
			return true
		}
	}
	return false
}
