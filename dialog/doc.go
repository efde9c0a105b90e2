// Package dialog provides the dialog-state operations a fulfillment handler
// performs on a Lex V2 conversation: reading the recognized intent and its
// slots, building the next-action response (close, elicit, confirm,
// delegate), chaining a follow-up handler through the callback request
// attribute, and validating replies against options offered on a previous
// turn.
package dialog
