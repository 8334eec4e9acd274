package httpnode

import (
	"github.com/yesoreyeram/fluxweave/pkg/security"
)

// SSRFPolicy is the zero-trust HTTP policy an engine config hands down,
// expressed as allow-flags (the opposite polarity of security.SSRFConfig's
// block-flags) so callers read it the same way they read
// pkg/executor.ExecutorConfig.
type SSRFPolicy struct {
	AllowPrivateIPs    bool
	AllowLocalhost     bool
	AllowLinkLocal     bool
	AllowCloudMetadata bool
	AllowedDomains     []string
}

// ValidateURL checks urlStr against the policy, blocking whatever was not
// explicitly allowed.
func (p SSRFPolicy) ValidateURL(urlStr string) error {
	protection := security.NewSSRFProtectionWithConfig(security.SSRFConfig{
		AllowedSchemes:     []string{"http", "https"},
		BlockPrivateIPs:    !p.AllowPrivateIPs,
		BlockLocalhost:     !p.AllowLocalhost,
		BlockLinkLocal:     !p.AllowLinkLocal,
		BlockCloudMetadata: !p.AllowCloudMetadata,
		AllowedDomains:     p.AllowedDomains,
	})
	return protection.ValidateURL(urlStr)
}
