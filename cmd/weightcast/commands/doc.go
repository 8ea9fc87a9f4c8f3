// Package commands wires the weightcast CLI: a full node that discovers
// peers, resolves an owner/client role and exchanges the weight vector, plus
// standalone serve/fetch/peers helpers for testing each half of the
// protocol.
package commands
