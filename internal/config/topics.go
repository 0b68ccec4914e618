package config

const (
	// TopicCommentsRaw is the NSQ topic carrying raw comment batches to clean.
	TopicCommentsRaw = "comments.raw"

	// TopicCommentsCleaned is the NSQ topic carrying retained, cleaned batches.
	TopicCommentsCleaned = "comments.cleaned"

	// ChannelPipeline is the NSQ channel the cleaning workers share.
	ChannelPipeline = "pipeline"
)
