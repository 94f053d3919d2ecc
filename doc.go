// Package passgate is a session-based authentication gateway. It
// authenticates users with a local email/password credential or through an
// external identity provider (Google, Facebook, GitHub, VKontakte, Twitter)
// and issues a signed, time-limited session token for the resolved identity.
//
// # Architecture
//
// The core is the Reconciler: given a verified credential check or provider
// handshake, it decides whether the identity maps to an existing user record,
// merges into an account matched by email, or creates a fresh record — and
// never lets one provider identity belong to two users.
//
// Around the core sit small collaborators:
//
//   - UserStore: the durable credential store, with uniqueness of email and
//     of (provider, subject) enforced at the store level.
//   - PasswordHasher: bcrypt hashing and constant-cost verification for
//     local credentials.
//   - TokenIssuer: stateless signed session tokens, 300 minutes by default.
//   - Middleware: resolves the bearer token on each request and attaches the
//     user record to the request context.
//   - Gateway: the HTTP surface wiring the above to /signin, /signup,
//     /signout and /auth/{provider} routes.
//
// Provider handshakes live in the oauth2 subpackage; store backends in
// stores (in-memory) and stores/gorm (relational); a gRPC interceptor with
// the same token contract in grpc.
//
// # Basic Usage
//
//	store := stores.NewMemUserStore()
//	engine := &passgate.Reconciler{
//	    Users:  store,
//	    Hasher: &passgate.PasswordHasher{},
//	    Issuer: &passgate.TokenIssuer{SecretKey: secret, Issuer: "myapp"},
//	}
//	session := scs.New()
//	gateway := passgate.NewGateway(engine, session).
//	    RegisterProvider(oauth2.NewGoogle("", "", "")).
//	    RegisterProvider(oauth2.NewGithub("", "", ""))
//	http.ListenAndServe(":8080", gateway.Handler())
//
// # Security notes
//
// Local authentication failures are deliberately under-specific: unknown
// email and wrong password produce the same response, and both paths cost a
// bcrypt comparison. Session tokens carry no revocation mechanism — once
// issued, a token is valid until its embedded expiry. Deployments that need
// forced logout have to rotate the signing secret.
package passgate
