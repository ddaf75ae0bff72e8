// Package engagement aggregates passive behavioral signals from page events.
// Three independent sub-trackers (scroll extent, visibility time, interaction
// rate) feed a fixed weighted score plus a coarse engaged/not-engaged
// threshold test. The trackers never identify content; they only describe how
// the user behaved on the page.
package engagement
