// Package audio defines the vocabulary shared by the focus broker: contexts,
// usages, focus gain/loss events and the focus request record.
//
// Contexts are the arbitration key. A client never names its context directly;
// it is derived from the usage attribute through a fixed table:
//
//	USAGE_MEDIA            -> music
//	USAGE_ASSISTANT        -> voice_command
//	USAGE_NOTIFICATION_*   -> notification
//	USAGE_VIRTUAL_SOURCE   -> invalid
package audio
