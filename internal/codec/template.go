package codec

// The runner depends on the exact text below. Only the data section between
// scriptHeader and scriptBody is generated.

const scriptHeader = "# Auto-generated by Steam Games Picker\n" +
	"$gameCategories = @(\n"

const scriptBody = ")\n" +
	"\n" +
	"function Start-Games {\n" +
	"    param ($gameList)\n" +
	"    foreach ($game in $gameList) {\n" +
	"        Write-Host \"$($game.Name) (ID: $($game.ID))\"\n" +
	"        $here = Split-Path -Parent $MyInvocation.MyCommand.Path\n" +
	"        $exe  = Join-Path $here 'steam-idle.exe'\n" +
	"        if (-not (Test-Path $exe)) { Write-Error \"steam-idle.exe not found at $exe\"; continue }\n" +
	"        Start-Process -FilePath $exe -ArgumentList $game.ID -WindowStyle Minimized\n" +
	"    }\n" +
	"    Start-Timer -timeout 3600\n" +
	"}\n" +
	"\n" +
	"function Stop-Games {\n" +
	"    Write-Host \"Stopping all steam-idle.exe processes...\"\n" +
	"    Get-Process -Name \"steam-idle\" -ErrorAction SilentlyContinue | Stop-Process -Force -ErrorAction SilentlyContinue\n" +
	"    Start-Timer -timeout 30\n" +
	"}\n" +
	"\n" +
	"function Start-Timer {\n" +
	"    param ([int]$timeout)\n" +
	"    $elapsed = 0\n" +
	"    $stopwatch = [System.Diagnostics.Stopwatch]::StartNew()\n" +
	"    while ($elapsed -lt $timeout) {\n" +
	"        Write-Host \"`rTime remaining: $($timeout - $elapsed) seconds. Press 'y' to skip: \" -NoNewline\n" +
	"        if ([console]::KeyAvailable) {\n" +
	"            $key = [console]::ReadKey($true).KeyChar\n" +
	"            if ($key -eq \"y\") {\n" +
	"                Write-Host \"Skip accepted. Moving forward.\"\n" +
	"                return\n" +
	"            }\n" +
	"        }\n" +
	"        Start-Sleep -Seconds 1\n" +
	"        $elapsed = [math]::Round($stopwatch.Elapsed.TotalSeconds)\n" +
	"    }\n" +
	"    Write-Host \"Proceeding to the next step...\"\n" +
	"}\n" +
	"\n" +
	"while ($true) {\n" +
	"    foreach ($gameList in $gameCategories) {\n" +
	"        Clear-Host\n" +
	"        Write-Host \"Starting a new game category...\"\n" +
	"        Start-Games -gameList $gameList\n" +
	"        Stop-Games\n" +
	"    }\n" +
	"    Write-Host \"Restarting loop...\"\n" +
	"}\n"

// launcherTemplate is start.bat. cmd.exe wants CRLF line endings.
const launcherTemplate = "@echo off\r\n" +
	"title Steam Idle Starter\r\n" +
	"chcp 65001 >NUL\r\n" +
	"color 0A\r\n" +
	"cd /d \"%~dp0\"\r\n" +
	"echo Starting PowerShell idle script...\r\n" +
	"powershell -ExecutionPolicy Bypass -NoProfile -File \"%~dp0games.ps1\"\r\n" +
	"echo.\r\n" +
	"pause"
