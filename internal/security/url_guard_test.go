package security

import (
	"context"
	"testing"
	"time"
)

// インターフェース準拠の確認
var _ CoverURLGuardService = (*coverURLGuard)(nil)

func TestNewCoverURLGuard_ReturnsNonNil(t *testing.T) {
	g := NewCoverURLGuard(5 * time.Second)
	if g == nil {
		t.Fatal("NewCoverURLGuard は nil を返してはならない")
	}
	if g.client == nil {
		t.Fatal("HTTPクライアントが初期化されていない")
	}
}

func TestCoverURLGuard_ValidateURL_AllowsPublicURLs(t *testing.T) {
	g := NewCoverURLGuard(5 * time.Second)

	tests := []struct {
		name   string
		rawURL string
	}{
		{"HTTPSの公開URL", "https://cdn.example.com/cover.png"},
		{"HTTPの公開URL", "http://images.example.com/photo.jpg"},
		{"パブリックIPアドレス", "https://93.184.216.34/cover.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.ValidateURL(tt.rawURL); err != nil {
				t.Errorf("ValidateURL(%s) = %v, want nil", tt.rawURL, err)
			}
		})
	}
}

func TestCoverURLGuard_ValidateURL_RejectsDangerousURLs(t *testing.T) {
	g := NewCoverURLGuard(5 * time.Second)

	tests := []struct {
		name   string
		rawURL string
	}{
		{"空のURL", ""},
		{"javascriptスキーム", "javascript:alert(1)"},
		{"dataスキーム", "data:image/png;base64,AAAA"},
		{"fileスキーム", "file:///etc/passwd"},
		{"ftpスキーム", "ftp://example.com/cover.png"},
		{"ホストなし", "https://"},
		{"localhost", "http://localhost/cover.png"},
		{"localhost大文字", "http://LOCALHOST/cover.png"},
		{"ループバックIP", "http://127.0.0.1/cover.png"},
		{"プライベートIP 10系", "http://10.0.0.5/cover.png"},
		{"プライベートIP 172系", "http://172.16.0.1/cover.png"},
		{"プライベートIP 192系", "http://192.168.1.1/cover.png"},
		{"リンクローカル（メタデータIP）", "http://169.254.169.254/latest/meta-data/"},
		{"カレントネットワーク", "http://0.0.0.0/cover.png"},
		{"IPv6ループバック", "http://[::1]/cover.png"},
		{"IPv6リンクローカル", "http://[fe80::1]/cover.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.ValidateURL(tt.rawURL); err == nil {
				t.Errorf("ValidateURL(%s) = nil, want error", tt.rawURL)
			}
		})
	}
}

func TestCoverURLGuard_ProbeImageURL_RejectsBeforeNetworkAccess(t *testing.T) {
	g := NewCoverURLGuard(5 * time.Second)

	// 静的検証で拒否されるURLはネットワークアクセスなしでエラーになる
	tests := []string{
		"javascript:alert(1)",
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost/cover.png",
	}

	for _, rawURL := range tests {
		if err := g.ProbeImageURL(context.Background(), rawURL); err == nil {
			t.Errorf("ProbeImageURL(%s) = nil, want error", rawURL)
		}
	}
}
