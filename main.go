// Command flutter-login-runner runs Appium login tests against a Flutter app.
package main

import "github.com/devicelab-dev/flutter-login-runner/pkg/cli"

func main() {
	cli.Execute()
}
