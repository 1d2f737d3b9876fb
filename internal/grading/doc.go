// Package grading holds the report-score rules of the Kurikulum Merdeka
// grade sheet.
//
// A grade record has six "Lingkup Materi" (LM) groups, each with four
// "Tujuan Pembelajaran" scores (TP1–TP4) and one summative score (the LM
// sum), plus the end-of-semester summative ("semester_final", SAS). The
// report score NR ("final_score") is the mean of whichever of the six LM
// sums and SAS are present, rounded to two decimals.
//
// Everything here is pure; callers own persistence and range enforcement
// at their boundary.
package grading
