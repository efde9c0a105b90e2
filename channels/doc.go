// Package channels adapts bot responses to the delivery platform behind a
// conversation. Rich messages that a platform cannot render, such as image
// response cards over SMS, are flattened to text, and any option values
// offered that way are recorded in the session so the next reply can be
// matched against them.
package channels
