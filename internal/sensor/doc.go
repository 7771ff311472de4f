// Package sensor defines the webprof detection framework.
//
// Architecture overview:
//
//   - Sensors implement the Sensor interface (Key + Category + Detect +
//     Mitigation) for one kind of finding each: Captcha, AntiBot and
//     JavaScript report access restrictions; Auth, Language, API and Mobile
//     report site capabilities.
//   - Every sensor inspects the same immutable RawResponse and emits a
//     confidence-scored Result with human-readable evidence. Evidence tiers
//     are combined with max, except the Auth sensor, which scores 0.3 per
//     distinct auth type detected.
//   - Each sensor owns a static mitigation table; Mitigation resolves the
//     strategies a crawler should apply for a given Result.
//   - NewRegistry builds the fixed, closed sensor set consumed by the
//     profiler. There is no runtime registration.
//
// Detect never fails: internal errors return a zero-confidence Result with
// the cause preserved as evidence, and collaborator failures (technology
// classification, app-store lookup) degrade to "not detected".
package sensor
