package res

// AboutContent contains the Markdown content for the About dialog.
// This is maintained separately for easy updates.
const AboutContent = `An audio-reactive visualizer for voice assistants, built with Go and Fyne.

**Styles:**
- Waveform
- Circular
- Particles
- Spectrum bars

**Shortcuts:**
- Alt+1 to Alt+4 switch styles
`
