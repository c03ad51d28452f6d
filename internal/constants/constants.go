package constants

//DiffField Reserved field of a history record holding the computed diff. Application documents must not use it.
const DiffField = "__diff"

//DefaultHistoryCollection Name of the root collection with history records.
const DefaultHistoryCollection = "histories"

//SubcollectionChanges Name of the per-document subcollection with history records.
const SubcollectionChanges = "changes"

//HistoryIDLayout Layout of history record IDs. Fixed width, so IDs sort in time order.
const HistoryIDLayout = "2006-01-02T15:04:05.000000000Z"

//NoopProjectID Project ID which disables all Google Cloud clients.
const NoopProjectID = "NOOP"

//DeletedIDSuffix Suffix of history record IDs of deletions. A deletion committed at the instant of
//the previous write sorts after it and never shares its ID.
const DeletedIDSuffix = "-deleted"

//MaxDocumentIDBytes Firestore limit of a document ID.
const MaxDocumentIDBytes = 1500
