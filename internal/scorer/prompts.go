package scorer

const analysisSystemPrompt = `You are a professional call quality analyst. Respond only with valid JSON as requested.`

const analysisUserPrompt = `You are an expert call quality analyst. Please analyze this customer service call transcript based on the given system prompt/guidelines.

SYSTEM PROMPT/GUIDELINES:
%s

CALL TRANSCRIPT:
%s

Please provide a detailed analysis in the following JSON format ONLY (no additional text):
{
    "performance_score": <float between 0-10>,
    "strengths": ["strength1", "strength2", "strength3"],
    "improvement_areas": ["area1", "area2", "area3"],
    "prompt_suggestions": ["suggestion1", "suggestion2"],
    "compliance_issues": ["issue1", "issue2"],
    "detailed_analysis": "Comprehensive 2-3 paragraph analysis of the call performance, highlighting key observations and recommendations"
}

Evaluation Criteria:
1. Adherence to system prompt guidelines (30%%)
2. Customer satisfaction and experience (25%%)
3. Problem resolution effectiveness (20%%)
4. Communication clarity and professionalism (15%%)
5. Compliance with procedures (10%%)

Provide specific, actionable feedback. If no issues found in a category, use empty array.`
