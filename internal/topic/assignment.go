package topic

// OutlierID is the topic of records that belong to no cluster.
const OutlierID = -1

// Assignment links a record to its topic.
type Assignment struct {
	RecordID    string  `json:"record_id"`
	TopicID     int     `json:"topic_id"`
	TopicName   string  `json:"topic_name"`
	Probability float64 `json:"probability"`
}

// IsOutlier reports whether the assignment is to the outlier topic.
func (a Assignment) IsOutlier() bool {
	return a.TopicID == OutlierID
}
