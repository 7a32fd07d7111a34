package types

// Progress keys form a small fixed namespace in the progress table. The
// continuation token and counter for a class are always written together in
// one transaction, so a reader never observes a cursor ahead of the
// corresponding entity writes.

// ContinueKey returns the progress key holding the pagination cursor for a
// class. An absent value means the class starts from its initial listing.
func ContinueKey(c Class) string { return "cmcontinue_" + string(c) }

// CountKey returns the progress key holding the persisted-item counter for
// a class.
func CountKey(c Class) string { return string(c) + "_count" }

// CompleteKey returns the progress key marking a class's listing as fully
// paginated. Its presence means the ingestion driver reached a page with no
// continuation token.
func CompleteKey(c Class) string { return string(c) + "_complete" }
