// Package tmds implements the Transition-Minimized Differential Signaling
// character coding used by DVI and HDMI links.
//
// # Lanes
//
// A link carries three lanes. Each lane turns one byte per pixel clock into a
// 10-bit character in two steps:
//
//	data ──► prefix XOR / XNOR ──► q_m[8:0] ──► DC balance ──► q_out[9:0]
//	                                             ▲       │
//	                                             └─ cnt ◄┘
//
// The first step picks XOR or XNOR so the character has few transitions and
// records the choice in bit 8. The second step may invert the low byte
// (flagged in bit 9) to keep the running disparity of the lane, cnt, within
// [-4, 4] (half of the real ones-minus-zeros balance).
//
// During blanking a lane instead sends one of four fixed control characters
// and its disparity goes back to zero.
//
// # Words
//
// Composer owns the three LaneEncoders and packs their output into a Word:
//
//	bits   31:30   29:20        19:10         9:0
//	       0       lane C (R)   lane B (G)    lane A (B, hsync/vsync)
//
// # Decoding
//
// DecodeSymbol and DecodeWord are the receive side. They need no state.
//
// # Thread Safety
//
// LaneEncoder, Composer and Stream hold running state and are not safe for
// concurrent use. Calls on a lane must follow the order of the character
// stream; skipping or reordering one corrupts the balance of everything after
// it. The decode functions are safe for concurrent use.
package tmds
