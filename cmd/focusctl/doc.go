// Command focusctl inspects and drives a running car audio focus broker over
// its HTTP API.
//
// Usage:
//
//	focusctl status
//	focusctl request --client music1 --uid 1000 --usage media --gain GAIN
//	focusctl abandon --client music1 --uid 1000
//	focusctl request --client rear1 --uid 1010 --zone 1
//	focusctl abandon --client rear1 --uid 1010 --zone 1
//	focusctl zones
//	focusctl uid set 1000 1
//	focusctl volume set 0 1 30
//	focusctl volume adjust raise
//	focusctl mute on
//
// --server selects the broker (default http://127.0.0.1:8000, or
// $FOCUSCTL_SERVER); --json prints raw responses.
package main
