// Package furnitron extracts furniture product names from retailer web pages
// that expose no structured product markup. Pages are rendered, their visible
// leaf text is collected and filtered into name candidates, and the
// candidates are labeled by an external classifier in fixed-size batches.
//
// This package contains domain types, interfaces and the pure text
// algorithms, following Ben Johnson's Standard Package Layout.
// Implementations live in subdirectories named after their primary
// dependency (e.g., rod/, goquery/, sqlite/, gemini/).
package furnitron
