// Package lexv2 contains the wire types exchanged between Amazon Lex V2 and
// a fulfillment Lambda: the code-hook input event, the expected response
// shape, and the polymorphic message formats. The types mirror the service
// contract documented for Lex V2 Lambda integrations and make no attempt to
// cover the V1 event format.
package lexv2
