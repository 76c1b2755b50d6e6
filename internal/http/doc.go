// Package http exposes the room API and the live channel over HTTP.
//
// The router exposes the following endpoints:
//   - POST /api/auth: issues an anonymous identity through the `auth_token`
//     cookie when the caller has none. Responds 200 with an empty object.
//   - POST /api/rooms: creates a room owned by the caller. Body: `createRoomRequest`
//     in room_handler.go. Response: {"room_uid"}. Issues the cookie when needed.
//   - GET /api/rooms/{room_uid}: the room rendered for the caller (`roomResponse`).
//     Works without an identity; the caller is then rendered as a non-member.
//   - DELETE /api/rooms/{room_uid}: owner only. Other viewers receive `roomDeleted`.
//   - GET /api/ws/{room_uid}: websocket upgrade for the live channel. Requires an
//     identity and an existing room; both are checked before the upgrade.
//   - GET /healthz: store liveness.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
