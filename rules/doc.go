// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package rules wraps github.com/notnil/chess with the handful of operations
the bot needs. Moves are accepted in SAN or UCI coordinates and come back as
a Descriptor carrying both forms. Only standard chess is supported.
*/
package rules
