// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides voter identities and random ids.

# Vote Identities

Every vote is keyed by an identity string. The namespaces never collide:

	auth.ConnectionIdentity()      // "conn:<uuid>", one per websocket
	auth.IPIdentity(ip, salt)      // "ip:<hash>", one per client address
	auth.ChatIdentity(username)    // "chat:<lower-cased name>"

Which of the first two the gateway uses is set by the identity mode in
cliparse.Config.

# IP Hashing

Client addresses are never kept in the clear:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
