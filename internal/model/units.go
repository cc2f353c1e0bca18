package model

// SSURGO stores saturated hydraulic conductivity in micrometers per
// second; everything downstream works in inches per hour. Both the SDA
// client and the local loader convert at ingestion.
const KsatUmSecToInHr = 0.14173228346456693
