// Package authclient implements the client side of a cookie authenticated
// session: who is signed in, how that changes, and which screens may render.
//
// Session lifecycle:
//   - SessionStore holds the current Identity (or none) plus the initial
//     loading flag. Every mutation replaces whole values and is delivered
//     to subscribers in order. Deliveries are queued, so a subscriber may
//     call back into the store or the provider.
//   - SessionProvider owns the single writer role. Start runs the initial
//     identity check exactly once; Login, Logout and Refresh drive every
//     later change through the Gateway.
//
// Unauthorized signals:
//   - The transport layer emits on UnauthorizedBus whenever any request is
//     rejected with 401. SessionProvider ignores signals that arrive before
//     the initial identity check settles, then clears the identity and
//     redirects to the login entry point, once per session.
//
// Route guarding:
//   - Evaluate is a pure function of SessionState and the requested path.
//     RouteGuard tracks the checking/authorized/unauthorized state machine on
//     top of it and captures the PendingDestination consumed after login.
package authclient
