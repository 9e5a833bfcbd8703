// Package validator は投稿フォームの検証ルールを提供する。
//
// 検証は純粋関数として実装され、I/Oを行わず入力を変更しない。
// 同一の入力と基準時刻に対して常に同一の結果を返す。
// 検証結果はフィールド名→エラーメッセージのマップで、
// 全ルールを満たす場合に限り空になる。
package validator

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/startlinker/internal/model"
)

// Step はウィザードの検証ステップを表す。
type Step string

const (
	// StepBasicInfo は基本情報ステップ。必須フィールドと形式を検証する。
	StepBasicInfo Step = "basic_info"
	// StepScheduling はスケジュールステップ。求人の日付制約を検証する。
	StepScheduling Step = "scheduling"
	// StepReview は最終確認ステップ。ステップごとの結果に依存せず
	// 全必須フィールドを再検証する。下書き復元による不整合への防御。
	StepReview Step = "review"
)

// Valid は既知の検証ステップかどうかを返す。
func (s Step) Valid() bool {
	return s == StepBasicInfo || s == StepScheduling || s == StepReview
}

// 検証ルールの境界値。
const (
	descriptionMin        = 50
	descriptionMaxStartup = 2000
	descriptionMaxJob     = 5000

	titleMin = 5
	nameMax  = 100

	locationMin = 2

	employeeCountMin = 1
	employeeCountMax = 100000

	foundedYearMin = 1800

	// 求人の日付制約。応募締切は24時間以上先、掲載期限は7日以上先、
	// 締切と期限の間には1日以上の間隔が必要。
	deadlineLeadTime = 24 * time.Hour
	expiryLeadTime   = 7 * 24 * time.Hour
	deadlineGap      = 24 * time.Hour
)

// dateLayout はフォームの日付入力形式。
const dateLayout = "2006-01-02"

// emailPattern はメールアドレスの形式検証パターン。
// 厳密なRFC準拠ではなく、明らかな入力ミスを弾くための検証。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate は指定ステップの検証ルールをフォームに適用し、
// フィールド名→エラーメッセージのマップを返す。
// nowは日付制約の基準時刻。マップが空の場合のみ検証成功とみなす。
func Validate(step Step, form *model.SubmissionForm, now time.Time) map[string]string {
	errs := make(map[string]string)

	switch step {
	case StepBasicInfo:
		validateBasicInfo(form, now, errs)
	case StepScheduling:
		validateScheduling(form, now, errs)
	case StepReview:
		// 最終確認では全ステップのルールを再適用し、さらに
		// カバー画像（ファイルまたはURL）の存在を要求する
		validateBasicInfo(form, now, errs)
		validateScheduling(form, now, errs)
		if !form.HasCoverFile && form.CoverImageURL == "" {
			errs["cover_image"] = "カバー画像を設定してください。ファイルのアップロードまたはURLの指定が必要です。"
		}
	}

	return errs
}

// validateBasicInfo は基本情報の必須・形式ルールを検証する。
func validateBasicInfo(form *model.SubmissionForm, now time.Time, errs map[string]string) {
	validateName(form, errs)
	validateDescription(form, errs)

	if form.Category == "" {
		errs["category"] = "カテゴリを選択してください。"
	}

	switch {
	case form.Location == "":
		errs["location"] = "所在地を入力してください。"
	case utf8.RuneCountInString(form.Location) < locationMin:
		errs["location"] = fmt.Sprintf("所在地は%d文字以上で入力してください。", locationMin)
	}

	if form.Kind == model.KindStartup {
		validateEmployeeCount(form, errs)
		validateFoundedYear(form, now, errs)
	} else {
		if form.JobType == "" {
			errs["job_type"] = "雇用形態を選択してください。"
		}
		validateCompanyEmail(form, errs)
	}

	if form.Website != "" && !isValidHTTPURL(form.Website) {
		errs["website"] = "WebサイトのURL形式が正しくありません。"
	}
	if form.CoverImageURL != "" && !isValidHTTPURL(form.CoverImageURL) {
		errs["cover_image_url"] = "カバー画像のURL形式が正しくありません。"
	}
}

// validateName は名称（スタートアップ名 / 求人タイトル）を検証する。
// 求人タイトルには最小文字数の制約がある。
func validateName(form *model.SubmissionForm, errs map[string]string) {
	runes := utf8.RuneCountInString(form.Name)

	switch {
	case form.Name == "":
		if form.Kind == model.KindStartup {
			errs["name"] = "スタートアップ名を入力してください。"
		} else {
			errs["name"] = "求人タイトルを入力してください。"
		}
	case form.Kind == model.KindJob && runes < titleMin:
		errs["name"] = fmt.Sprintf("求人タイトルは%d文字以上で入力してください。", titleMin)
	case runes > nameMax:
		errs["name"] = fmt.Sprintf("名称は%d文字以内で入力してください。", nameMax)
	}
}

// validateDescription は説明文の文字数を検証する。
// 上限は投稿種別によって異なる。
func validateDescription(form *model.SubmissionForm, errs map[string]string) {
	maxLen := descriptionMaxJob
	if form.Kind == model.KindStartup {
		maxLen = descriptionMaxStartup
	}

	runes := utf8.RuneCountInString(form.Description)

	switch {
	case form.Description == "":
		errs["description"] = "説明文を入力してください。"
	case runes < descriptionMin:
		errs["description"] = fmt.Sprintf("説明文は%d文字以上で入力してください（現在%d文字）。", descriptionMin, runes)
	case runes > maxLen:
		errs["description"] = fmt.Sprintf("説明文は%d文字以内で入力してください（現在%d文字）。", maxLen, runes)
	}
}

// validateEmployeeCount は従業員数を検証する。
func validateEmployeeCount(form *model.SubmissionForm, errs map[string]string) {
	if form.EmployeeCount == "" {
		errs["employee_count"] = "従業員数を入力してください。"
		return
	}

	n, err := strconv.Atoi(strings.TrimSpace(form.EmployeeCount))
	if err != nil {
		errs["employee_count"] = "従業員数は数値で入力してください。"
		return
	}
	if n < employeeCountMin || n > employeeCountMax {
		errs["employee_count"] = fmt.Sprintf("従業員数は%d〜%dの範囲で入力してください。", employeeCountMin, employeeCountMax)
	}
}

// validateFoundedYear は設立年を検証する。上限は基準時刻の年。
func validateFoundedYear(form *model.SubmissionForm, now time.Time, errs map[string]string) {
	if form.FoundedYear == "" {
		errs["founded_year"] = "設立年を入力してください。"
		return
	}

	year, err := strconv.Atoi(strings.TrimSpace(form.FoundedYear))
	if err != nil {
		errs["founded_year"] = "設立年は数値で入力してください。"
		return
	}
	if year < foundedYearMin || year > now.Year() {
		errs["founded_year"] = fmt.Sprintf("設立年は%d〜%dの範囲で入力してください。", foundedYearMin, now.Year())
	}
}

// validateCompanyEmail は企業メールアドレスを検証する。
func validateCompanyEmail(form *model.SubmissionForm, errs map[string]string) {
	if form.CompanyEmail == "" {
		errs["company_email"] = "企業メールアドレスを入力してください。"
		return
	}
	if !emailPattern.MatchString(form.CompanyEmail) {
		errs["company_email"] = "メールアドレスの形式が正しくありません。"
	}
}

// validateScheduling は求人の日付制約を検証する。
// 3つの制約（締切の下限、期限の下限、締切と期限の順序）は
// 独立して検証され、それぞれが個別のエラーを生成する。
// スタートアップ投稿には日付制約がない。
func validateScheduling(form *model.SubmissionForm, now time.Time, errs map[string]string) {
	if form.Kind != model.KindJob {
		return
	}

	deadline, deadlineOK := parseDateField(form.ApplicationDeadline, "application_deadline", "応募締切日", errs)
	expiry, expiryOK := parseDateField(form.ExpiresAt, "expires_at", "掲載期限", errs)

	if deadlineOK && deadline.Before(now.Add(deadlineLeadTime)) {
		errs["application_deadline"] = "応募締切日は24時間以上先の日付を指定してください。"
	}
	if expiryOK && expiry.Before(now.Add(expiryLeadTime)) {
		errs["expires_at"] = "掲載期限は7日以上先の日付を指定してください。"
	}
	if deadlineOK && expiryOK && expiry.Sub(deadline) < deadlineGap {
		errs["deadline_order"] = "応募締切日は掲載期限の1日以上前に設定してください。"
	}
}

// parseDateField は日付フィールドをパースする。
// 未入力・形式不正の場合はエラーを記録してfalseを返す。
func parseDateField(value, field, label string, errs map[string]string) (time.Time, bool) {
	if value == "" {
		errs[field] = fmt.Sprintf("%sを入力してください。", label)
		return time.Time{}, false
	}

	t, err := time.Parse(dateLayout, value)
	if err != nil {
		errs[field] = fmt.Sprintf("%sの日付形式が正しくありません。", label)
		return time.Time{}, false
	}
	return t, true
}

// isValidHTTPURL はURLがhttp/httpsスキームの完全なURLかを返す。
func isValidHTTPURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
