// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package moderation screens spectator chat before it can become a vote.

# Lists

Moderators and banned users are stored in the moderator and banned_user
tables and cached in memory. Usernames are compared case-insensitively.

	list := moderation.New(conn)
	list.Seed(ctx, cfg.Mods)
	list.Load(ctx)
	go list.Watch(ctx, moderation.DefaultRefresh)

# Chat Commands

HandleChat turns one chat line into an Action:

	/ban <user>     mods only, replies "Banned <user>."
	/unban <user>   mods only, replies "Unbanned <user>."
	/mod <user>     mods only, replies "Promoted <user> to mod."
	/<move>         a vote, e.g. /e4 or /O-O
	/resign         a vote to resign

Lines from banned users and lines without a leading slash are ignored.
*/
package moderation
