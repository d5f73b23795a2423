package analysis

const jsonOnly = `Provide your analysis as a JSON object with EXACTLY this structure (no markdown, just pure JSON).

IMPORTANT:
- If the media looks natural and authentic, set prediction to "REAL" with high confidence (0.7-1.0)
- If you see clear signs of deepfake or AI generation, set prediction to "FAKE" with high confidence (0.7-1.0)
- Only use low confidence (0.3-0.6) if you are genuinely uncertain`

// ImagePrompt asks for a verdict, per-region quality scores and, when visible, the face box.
const ImagePrompt = `You are an expert deepfake detection analyst. Analyze this image carefully and determine if it is REAL (authentic) or FAKE (deepfake/AI-generated).

Look carefully at facial features and their naturalness, skin texture and pores, lighting consistency across
the face, edge quality around face boundaries, eye reflections and overall image artifacts.

` + jsonOnly + `

{
  "prediction": "REAL" or "FAKE",
  "confidence": 0.0-1.0,
  "reasoning": "3-5 sentences naming the specific visual evidence behind the verdict",
  "border_quality": 0.0-1.0,
  "edge_uniformity": 0.0-1.0,
  "lighting_consistency": 0.0-1.0,
  "skin_texture_score": 0.0-1.0,
  "facial_symmetry_score": 0.0-1.0,
  "face_detected": true or false,
  "face_region": {"left": px, "top": px, "width": px, "height": px} or null,
  "artifacts_detected": ["specific artifacts, if any"]
}`

// FramePrompt is the image prompt for a single sampled video frame.
const FramePrompt = `You are an expert deepfake detection analyst. This is one frame sampled from a video. Determine if it
is REAL (authentic) or FAKE (deepfake/AI-generated), paying attention to blending seams, temporal smearing and
inconsistent lighting on the face.

` + jsonOnly + `

{
  "prediction": "REAL" or "FAKE",
  "confidence": 0.0-1.0,
  "reasoning": "short explanation",
  "border_quality": 0.0-1.0,
  "edge_uniformity": 0.0-1.0,
  "lighting_consistency": 0.0-1.0,
  "artifacts_detected": ["specific artifacts, if any"]
}`

// AudioPrompt is followed by the transcription of the clip.
const AudioPrompt = `You are an expert audio deepfake detection analyst. Analyze this audio transcription for signs of
synthetic or AI-generated speech: naturalness and flow, prosody and intonation, voice consistency, linguistic
coherence, pause and rhythm patterns.

` + jsonOnly + `

{
  "prediction": "REAL" or "FAKE",
  "confidence": 0.0-1.0,
  "reasoning": "detailed explanation of why you chose REAL or FAKE",
  "naturalness_score": 0.0-1.0,
  "prosody_consistency": 0.0-1.0,
  "voice_quality": 0.0-1.0,
  "linguistic_coherence": 0.0-1.0,
  "pause_patterns": 0.0-1.0,
  "audio_quality_score": 0.0-1.0,
  "indicators": ["specific deepfake indicators, if any"]
}`
