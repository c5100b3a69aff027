// Package stereo implements hierarchical belief-propagation stereo matching.
//
// The package is organised around three contracts:
//
//   - DSC (disparity-space cost) says how expensive it is to match a left
//     pixel with a right pixel, and how to merge pixels into a coarser one.
//   - DSR (disparity-space range) lists, per left pixel, the inclusive
//     disparity ranges worth searching.
//   - DSI (disparity-space image) is a result: per pixel, an ascending list of
//     candidate disparities with costs.
//
// EBP consumes a DSC and a DSR seed and produces a DSI:
//
//	e := stereo.NewEBP(stereo.DefaultConfig())
//	e.SetDSC(stereo.NewDifferenceDSC(left, right, 1))
//	e.SetDSR(stereo.NewRangeDSR(w, h, 0, 16))
//	if err := e.Run(nil); err != nil {
//		// bad configuration
//	}
//	d := e.Disp(x, y, 0)
//
// HEBP needs no seed: it runs EBP once per pyramid level, coarsest first, and
// feeds each result into the next finer level as its search range.
//
// # Disparity convention
//
// A left pixel x with disparity d matches right pixel x+d. Matches that fall
// outside the right image are clamped to its border and charged
// OccCostBase per pixel of overshoot.
package stereo
