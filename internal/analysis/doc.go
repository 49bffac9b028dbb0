// Package analysis inspects recorded runs.
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation content of an
//     energy or position series
//   - [ParticlePortrait]: position/velocity trajectory of one particle
//     from recorded frames, drawn with [PhasePortraitToASCII]
package analysis
