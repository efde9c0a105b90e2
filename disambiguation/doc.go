// Package disambiguation turns a low-confidence intent classification into
// a clarification question instead of a wrong guess. An Analyzer inspects
// the NLU interpretations of a turn and decides whether the top candidates
// are too weak or too close to act on; a Handler asks the user to choose
// and applies the choice on the following turn.
package disambiguation
