package deploy

// =============================================================================
// Deployment Request
// =============================================================================

// Credentials identify a release registry and the tag to freeze under.
type Credentials struct {
	Domain     string
	Username   string
	Password   string
	ReleaseTag string
}

// Complete reports whether every credential field is populated.
func (c Credentials) Complete() bool {
	return c.Domain != "" && c.Username != "" && c.Password != "" && c.ReleaseTag != ""
}

// Request describes one deployment invocation. It is owned by the caller and
// immutable for the invocation's duration.
type Request struct {
	// RoleName is the key under which the composition is persisted.
	RoleName string

	// ComposeData is the verbatim composition document text.
	ComposeData string

	// Mode is the requested deploy mode; empty defaults to install.
	Mode string

	// Overrides are modes the caller implements itself; the dispatcher
	// treats them as no-ops.
	Overrides map[Mode]bool

	// KeepImages skips image removal during purge.
	KeepImages bool

	// ForceRecreate forces container recreation when bringing the
	// composition up.
	ForceRecreate bool

	// RegistryCredentials are required only for freeze.
	RegistryCredentials Credentials
}

// Validate checks the request's caller-supplied fields. Mode-specific
// requirements (freeze credentials) are checked against the resolved mode.
func (r *Request) Validate() error {
	if r.RoleName == "" {
		return ErrMissingRole
	}
	if r.ComposeData == "" {
		return ErrMissingComposeData
	}
	if _, err := ParseMode(r.Mode); err != nil {
		return err
	}
	return nil
}
