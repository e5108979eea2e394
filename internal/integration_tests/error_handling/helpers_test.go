package integration_tests

const countManifests = `
tool "source" {
  handler = "Count"
  output "out" { type = string }
}

tool "sink" {
  handler = "Count"
  input "in" { type = string }
  output "in" { type = string }
}
`
